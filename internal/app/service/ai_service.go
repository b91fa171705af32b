package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/ikkim/review-insight-backend/internal/analytics"
	"github.com/ikkim/review-insight-backend/internal/app/model"
	"github.com/ikkim/review-insight-backend/pkg/gemini"
	"github.com/ikkim/review-insight-backend/pkg/logger"
	"github.com/spf13/cast"
)

var (
	ErrNoJSONInAnswer     = errors.New("model answer contains no JSON object")
	ErrInvalidModelAnswer = errors.New("model answer is not a review object")
)

// ShopName is the business the reports are written for.
const ShopName = "Southern Frontier"

// ModelClient is the subset of the Gemini client the AI service uses.
type ModelClient interface {
	GenerateContent(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error)
	StreamGenerateContent(ctx context.Context, req gemini.GenerateRequest, onChunk func(string) error) (string, error)
}

// ReportInput 리포트 생성 입력
type ReportInput struct {
	Language model.ReportLanguage
	Reviews  []model.Review
	Stats    analytics.SentimentStats
}

// AIService AI 서비스 인터페이스
type AIService interface {
	ExtractReview(ctx context.Context, image []byte, mimeType string) (*model.ExtractedReview, error)
	StreamReport(ctx context.Context, input ReportInput, onChunk func(string) error) (string, error)
}

type aiService struct {
	client ModelClient
}

// NewAIService AI 서비스 생성자
func NewAIService(client ModelClient) AIService {
	return &aiService{
		client: client,
	}
}

const extractionPrompt = `You are reading a screenshot of one customer review from a food delivery or review app.
Extract the following fields and answer with a single JSON object:

- user_name: the reviewer's display name
- review_date: the date exactly as shown (for example "12/30" or "2025-12-30")
- rating_overall: the overall star rating. Count only the filled orange stars, not the grey ones
- rating_taste, rating_env, rating_service, rating_value: the sub-ratings for taste, environment, service and value when shown
- content: the review text. Remove emojis. Ignore any reply from the merchant

Use null for any field that is not visible. Ratings are numbers between 0 and 5.
Answer with JSON only, no explanation.`

// ExtractReview 스크린샷 한 장에서 리뷰 필드 추출
func (s *aiService) ExtractReview(ctx context.Context, image []byte, mimeType string) (*model.ExtractedReview, error) {
	req := gemini.UserText(extractionPrompt, gemini.Image(mimeType, image))
	req.GenerationConfig = &gemini.GenerationConfig{ResponseMimeType: "application/json"}

	resp, err := s.client.GenerateContent(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("failed to call model: %w", err)
	}

	review, err := parseExtraction(resp.Text())
	if err != nil {
		logger.Warn("Unparseable extraction answer", map[string]interface{}{
			"error":  err.Error(),
			"answer": truncate(resp.Text(), 200),
		})
		return nil, err
	}
	return review, nil
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// extractJSON 모델 응답에서 JSON 객체 부분만 잘라냄
func extractJSON(answer string) (string, error) {
	if m := jsonObjectPattern.FindString(answer); m != "" {
		return m, nil
	}
	trimmed := strings.TrimSpace(answer)
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if trimmed == "" {
		return "", ErrNoJSONInAnswer
	}
	return trimmed, nil
}

func parseExtraction(answer string) (*model.ExtractedReview, error) {
	raw, err := extractJSON(answer)
	if err != nil {
		return nil, err
	}

	var fields map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidModelAnswer, err)
	}

	return &model.ExtractedReview{
		UserName:      optionalString(fields["user_name"]),
		ReviewDate:    optionalString(fields["review_date"]),
		RatingOverall: optionalRating(fields["rating_overall"]),
		RatingTaste:   optionalRating(fields["rating_taste"]),
		RatingEnv:     optionalRating(fields["rating_env"]),
		RatingService: optionalRating(fields["rating_service"]),
		RatingValue:   optionalRating(fields["rating_value"]),
		Content:       optionalString(fields["content"]),
	}, nil
}

// optionalString treats null, empty and non-scalar values as absent.
func optionalString(v interface{}) *string {
	if v == nil {
		return nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "null") {
		return nil
	}
	return &s
}

// optionalRating accepts numbers and numeric strings ("4.5"); anything
// outside [0, 5] is dropped.
func optionalRating(v interface{}) *float64 {
	if v == nil {
		return nil
	}
	if s, ok := v.(string); ok {
		v = strings.TrimSpace(s)
		if v == "" {
			return nil
		}
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || f < 0 || f > 5 {
		return nil
	}
	return &f
}

// StreamReport 리포트 생성 (청크 단위 스트리밍)
func (s *aiService) StreamReport(ctx context.Context, input ReportInput, onChunk func(string) error) (string, error) {
	prompt, err := buildReportPrompt(input)
	if err != nil {
		return "", err
	}

	text, err := s.client.StreamGenerateContent(ctx, gemini.UserText(prompt), onChunk)
	if err != nil {
		return text, fmt.Errorf("failed to stream report: %w", err)
	}
	return text, nil
}

type promptReview struct {
	UserName      *string  `json:"user_name"`
	RatingOverall *float64 `json:"rating_overall"`
	Content       *string  `json:"content"`
	ReviewDate    string   `json:"review_date"`
}

// sentimentLabels 언어별 감성 분류 이름
func sentimentLabels(lang model.ReportLanguage) map[analytics.Sentiment]string {
	if lang == model.LanguageChinese {
		return map[analytics.Sentiment]string{
			analytics.SentimentPositive: "正面",
			analytics.SentimentNeutral:  "中立",
			analytics.SentimentNegative: "负面",
		}
	}
	return map[analytics.Sentiment]string{
		analytics.SentimentPositive: "Positive",
		analytics.SentimentNeutral:  "Neutral",
		analytics.SentimentNegative: "Negative",
	}
}

// buildReportPrompt 리뷰와 감성 통계로 리포트 프롬프트 생성
func buildReportPrompt(input ReportInput) (string, error) {
	lang := input.Language
	if lang == "" {
		lang = model.LanguageEnglish
	}

	rows := make([]promptReview, 0, len(input.Reviews))
	for _, r := range input.Reviews {
		rows = append(rows, promptReview{
			UserName:      r.UserName,
			RatingOverall: r.RatingOverall,
			Content:       r.Content,
			ReviewDate:    r.ReviewDate.Format(model.DateLayout),
		})
	}
	reviewsJSON, err := json.MarshalIndent(rows, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode reviews: %w", err)
	}

	var prompt strings.Builder

	// 1️⃣ 역할
	prompt.WriteString(fmt.Sprintf(
		"You are a senior customer-experience analyst for the tea shop \"%s\". "+
			"Write a business intelligence report in %s based on the customer reviews below.\n\n",
		ShopName, lang))

	// 2️⃣ 미리 계산된 통계
	stats := input.Stats
	if stats.Total > 0 {
		prompt.WriteString("Precomputed statistics (use these numbers, do not recount):\n")
		prompt.WriteString(fmt.Sprintf("Total Reviews: %d\n", stats.Total))
		prompt.WriteString("Sentiment Breakdown (3 Categories):\n")
		prompt.WriteString(fmt.Sprintf("- Positive (4.5 - 5.0): %d (%.1f%%)\n", stats.Positive, stats.PositivePct))
		prompt.WriteString(fmt.Sprintf("- Neutral (4.0): %d (%.1f%%)\n", stats.Neutral, stats.NeutralPct))
		prompt.WriteString(fmt.Sprintf("- Negative (<= 3.5): %d (%.1f%%)\n\n", stats.Negative, stats.NegativePct))
	} else {
		prompt.WriteString("No stats available.\n\n")
	}

	// 3️⃣ 리뷰 데이터
	prompt.WriteString("Reviews (JSON):\n")
	prompt.Write(reviewsJSON)
	prompt.WriteString("\n\n")

	// 4️⃣ 리포트 구조
	labels := sentimentLabels(lang)
	prompt.WriteString("Structure the report exactly as follows:\n\n")
	prompt.WriteString("# 1. Sentiment Analysis\n")
	prompt.WriteString("- Overall Summary: the general mood of customers in two or three sentences.\n")
	prompt.WriteString(fmt.Sprintf(
		"- Sentiment Breakdown: report the %s, %s and %s shares from the statistics above. Do not split the positive share by star count.\n",
		labels[analytics.SentimentPositive], labels[analytics.SentimentNeutral], labels[analytics.SentimentNegative]))
	prompt.WriteString("- Polarity Analysis: what drives the positive reviews and what drives the negative ones, quoting short phrases.\n\n")
	prompt.WriteString("# 2. Customer Archetype Understanding\n")
	prompt.WriteString("- Describe 2-3 customer archetypes seen in the reviews, with one recommendation for each.\n\n")
	prompt.WriteString("# 3. Product Growth Recommendations\n")
	prompt.WriteString("- Give 3-5 concrete, actionable steps ordered by expected impact.\n\n")

	// 5️⃣ 공통 규칙
	prompt.WriteString("Rules:\n")
	prompt.WriteString("- Output Markdown only.\n")
	prompt.WriteString("- Do not add memo headers such as To, From, Date or Subject.\n")
	if lang == model.LanguageChinese {
		prompt.WriteString("- Write every heading and sentence in Simplified Chinese.\n")
	}

	return prompt.String(), nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
