package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput  = "VALIDATION_INVALID_INPUT"  // 잘못된 입력
	ValidationInvalidID     = "VALIDATION_INVALID_ID"     // 잘못된 ID
	ValidationInvalidFormat = "VALIDATION_INVALID_FORMAT" // 잘못된 형식
	ValidationInvalidRange  = "VALIDATION_INVALID_RANGE"  // 범위 초과
	ValidationRequired      = "VALIDATION_REQUIRED"       // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재
	ResourceConflict      = "RESOURCE_CONFLICT"       // 충돌

	// ==================== 리뷰 (REVIEW_) ====================
	ReviewNotFound      = "REVIEW_NOT_FOUND"      // 리뷰 없음
	ReviewInvalidRating = "REVIEW_INVALID_RATING" // 잘못된 평점
	ReviewAlreadyExists = "REVIEW_ALREADY_EXISTS" // 같은 작성자+내용 리뷰 존재

	// ==================== 추출 (INGEST_) ====================
	IngestNoImages         = "INGEST_NO_IMAGES"         // 업로드 이미지 없음
	IngestExtractionFailed = "INGEST_EXTRACTION_FAILED" // 모든 이미지 추출 실패

	// ==================== 업로드 (UPLOAD_) ====================
	UploadInvalidFileType = "UPLOAD_INVALID_FILE_TYPE" // 잘못된 파일 형식
	UploadFileTooLarge    = "UPLOAD_FILE_TOO_LARGE"    // 파일 너무 큼
	UploadFailed          = "UPLOAD_FAILED"            // 업로드 실패

	// ==================== 리포트 (REPORT_) ====================
	ReportNotFound   = "REPORT_NOT_FOUND"   // 리포트 없음
	ReportNoReviews  = "REPORT_NO_REVIEWS"  // 분석할 리뷰 없음
	ReportInProgress = "REPORT_IN_PROGRESS" // 다른 리포트 생성 중

	// ==================== 내부 오류 (INTERNAL_) ====================
	InternalServerError   = "INTERNAL_SERVER_ERROR"   // 서버 오류
	InternalDatabaseError = "INTERNAL_DATABASE_ERROR" // DB 오류
	InternalExternalAPI   = "INTERNAL_EXTERNAL_API"   // 외부 API 오류
	InternalConfigError   = "INTERNAL_CONFIG_ERROR"   // 설정 오류
)
