package gemini

import (
	"strings"

	"google.golang.org/genai"
)

// Part is one piece of a message: text or inline binary data.
type Part struct {
	Text       string
	InlineData *InlineData
}

// InlineData carries raw image bytes.
type InlineData struct {
	MimeType string
	Data     []byte
}

type Content struct {
	Role  string
	Parts []Part
}

type GenerationConfig struct {
	Temperature      *float64
	MaxOutputTokens  int
	ResponseMimeType string
}

// GenerateRequest represents one generateContent call
type GenerateRequest struct {
	Contents          []Content
	SystemInstruction *Content
	GenerationConfig  *GenerationConfig
}

type Candidate struct {
	Content      Content
	FinishReason string
}

type UsageMetadata struct {
	PromptTokenCount     int
	CandidatesTokenCount int
	TotalTokenCount      int
}

type PromptFeedback struct {
	BlockReason string
}

// GenerateResponse represents one response, or one streamed chunk
type GenerateResponse struct {
	Candidates     []Candidate
	PromptFeedback *PromptFeedback
	UsageMetadata  *UsageMetadata
}

// Text concatenates the text parts of the first candidate.
func (r *GenerateResponse) Text() string {
	if len(r.Candidates) == 0 {
		return ""
	}
	var b strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		b.WriteString(p.Text)
	}
	return b.String()
}

func (r *GenerateResponse) blocked() bool {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return true
	}
	return len(r.Candidates) > 0 && r.Candidates[0].FinishReason == string(genai.FinishReasonSafety)
}

// UserText builds a single-turn request from text and optional inline parts.
func UserText(prompt string, extra ...Part) GenerateRequest {
	parts := append([]Part{{Text: prompt}}, extra...)
	return GenerateRequest{Contents: []Content{{Role: "user", Parts: parts}}}
}

// Image wraps raw image bytes as an inline part.
func Image(mimeType string, data []byte) Part {
	return Part{InlineData: &InlineData{MimeType: mimeType, Data: data}}
}

func (c Content) toGenai() *genai.Content {
	parts := make([]*genai.Part, 0, len(c.Parts))
	for _, p := range c.Parts {
		if p.InlineData != nil {
			parts = append(parts, genai.NewPartFromBytes(p.InlineData.Data, p.InlineData.MimeType))
			continue
		}
		parts = append(parts, genai.NewPartFromText(p.Text))
	}
	return &genai.Content{Role: c.Role, Parts: parts}
}

// toGenai converts the request into SDK contents and config.
func (r GenerateRequest) toGenai() ([]*genai.Content, *genai.GenerateContentConfig) {
	contents := make([]*genai.Content, 0, len(r.Contents))
	for _, c := range r.Contents {
		contents = append(contents, c.toGenai())
	}

	if r.SystemInstruction == nil && r.GenerationConfig == nil {
		return contents, nil
	}
	cfg := &genai.GenerateContentConfig{}
	if r.SystemInstruction != nil {
		cfg.SystemInstruction = r.SystemInstruction.toGenai()
	}
	if gc := r.GenerationConfig; gc != nil {
		if gc.Temperature != nil {
			t := float32(*gc.Temperature)
			cfg.Temperature = &t
		}
		cfg.MaxOutputTokens = int32(gc.MaxOutputTokens)
		cfg.ResponseMIMEType = gc.ResponseMimeType
	}
	return contents, cfg
}

// fromGenai keeps the text parts of an SDK response. Thought parts are dropped.
func fromGenai(resp *genai.GenerateContentResponse) *GenerateResponse {
	out := &GenerateResponse{}
	if resp == nil {
		return out
	}
	for _, c := range resp.Candidates {
		if c == nil {
			continue
		}
		cand := Candidate{FinishReason: string(c.FinishReason)}
		if c.Content != nil {
			cand.Content.Role = c.Content.Role
			for _, p := range c.Content.Parts {
				if p == nil || p.Thought || p.Text == "" {
					continue
				}
				cand.Content.Parts = append(cand.Content.Parts, Part{Text: p.Text})
			}
		}
		out.Candidates = append(out.Candidates, cand)
	}
	if pf := resp.PromptFeedback; pf != nil && pf.BlockReason != "" {
		out.PromptFeedback = &PromptFeedback{BlockReason: string(pf.BlockReason)}
	}
	if u := resp.UsageMetadata; u != nil {
		out.UsageMetadata = &UsageMetadata{
			PromptTokenCount:     int(u.PromptTokenCount),
			CandidatesTokenCount: int(u.CandidatesTokenCount),
			TotalTokenCount:      int(u.TotalTokenCount),
		}
	}
	return out
}
