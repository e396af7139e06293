package assistant

import "errors"

var (
	ErrInputRequired      = errors.New("input text required")
	ErrInvalidRequestType = errors.New("invalid request type")
	ErrModelNotFound      = errors.New("AI model not found")
	ErrNoActiveModel      = errors.New("no active AI model found for type")
	ErrModelRateLimited   = errors.New("AI model rate limit exceeded")
	ErrRequestNotFound    = errors.New("ai request not found")
	ErrForbidden          = errors.New("ai request belongs to another user")
	ErrRequestNotFinished = errors.New("ai request is not finished")
	ErrFeedbackExists     = errors.New("feedback already submitted")
	ErrInvalidRating      = errors.New("rating must be between 1 and 5")
	ErrTopicRequired      = errors.New("topic required")
	ErrContentRequired    = errors.New("content required")
	ErrContentOrTitle     = errors.New("content or title required")
	ErrUnexpectedOutput   = errors.New("unexpected provider output")
	ErrInvalidModel       = errors.New("invalid AI model definition")
	ErrModelExists        = errors.New("AI model already registered")
)

// ServiceError 为请求记录已创建后的统一失败类型。
type ServiceError struct {
	RequestID string
	Err       error
}

func (e *ServiceError) Error() string {
	return "Failed to process request: " + e.Err.Error()
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}
