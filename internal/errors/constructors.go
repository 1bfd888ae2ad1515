package errors

// Convenience functions for common error patterns

// Config errors

func ConfigNotFound(path string) *DocGenError {
	return New(CategoryConfig, SeverityFatal, "configuration file not found").
		WithContext("path", path)
}

func ConfigRequired(field string) *DocGenError {
	return New(CategoryConfig, SeverityFatal, "required configuration missing").
		WithContext("field", field)
}

func ValidationFailed(field, reason string) *DocGenError {
	return New(CategoryValidation, SeverityFatal, "validation failed").
		WithContext("field", field).
		WithContext("reason", reason)
}

// AI call errors

func QuotaExceeded(cause error) *DocGenError {
	return WrapRetryable(cause, CategoryQuota, SeverityWarning, "API quota exceeded")
}

func APINetworkError(cause error) *DocGenError {
	return WrapRetryable(cause, CategoryNetwork, SeverityWarning, "API request failed")
}

func APIAuthError(cause error) *DocGenError {
	return Wrap(cause, CategoryAuth, SeverityFatal, "API credentials rejected")
}

func APIRequestInvalid(cause error) *DocGenError {
	return Wrap(cause, CategoryConfig, SeverityFatal, "API rejected the request as malformed")
}

// RetryExhausted marks a call whose bounded retries were consumed; it carries
// the last transient cause and is never itself retryable.
func RetryExhausted(category string, attempts int, cause error) *DocGenError {
	e := Wrap(cause, CategoryQuota, SeverityFatal, "retries exhausted")
	e.Exhausted = true
	return e.WithContext("call_category", category).WithContext("attempts", attempts)
}

// Context loading errors

func ContextLoadError(source string, cause error) *DocGenError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "project context loading failed").
		WithContext("source", source)
}

func GitCloneError(repo string, cause error) *DocGenError {
	return Wrap(cause, CategoryGit, SeverityFatal, "repository clone failed").
		WithContext("repository", repo)
}

// Pipeline errors

func GenerationFailed(phase string, cause error) *DocGenError {
	return Wrap(cause, CategoryRuntime, SeverityFatal, "generation failed").
		WithContext("phase", phase)
}

func AssemblyError(cause error) *DocGenError {
	return Wrap(cause, CategoryFileSystem, SeverityFatal, "document assembly failed")
}

func JournalError(operation string, cause error) *DocGenError {
	return Wrap(cause, CategoryInternal, SeverityWarning, "run journal operation failed").
		WithContext("operation", operation)
}
