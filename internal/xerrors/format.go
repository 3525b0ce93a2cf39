package xerrors

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FormatForCLI formats an error for CLI output (spec §6 command surface:
// non-zero exit on unrecoverable error, message printed to the user).
func FormatForCLI(err error) string {
	if err == nil {
		return ""
	}

	se, ok := err.(*SearchError)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Error: %s\n", se.Message))
	if se.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("  Hint: %s\n", se.Suggestion))
	}
	sb.WriteString(fmt.Sprintf("  Code: %s\n", se.Code))
	return sb.String()
}

// jsonError is the JSON representation of an error.
type jsonError struct {
	Code       string            `json:"code"`
	Message    string            `json:"message"`
	Category   string            `json:"category"`
	Severity   string            `json:"severity"`
	Details    map[string]string `json:"details,omitempty"`
	Suggestion string            `json:"suggestion,omitempty"`
	Cause      string            `json:"cause,omitempty"`
	Retryable  bool              `json:"retryable"`
}

// FormatJSON returns a JSON representation of the error, for machine
// consumption (e.g. the eval harness report's cases_detail).
func FormatJSON(err error) ([]byte, error) {
	if err == nil {
		return json.Marshal(nil)
	}

	se, ok := err.(*SearchError)
	if !ok {
		se = Wrap(ErrCodeInternal, err)
	}

	je := jsonError{
		Code:       se.Code,
		Message:    se.Message,
		Category:   string(se.Category),
		Severity:   string(se.Severity),
		Details:    se.Details,
		Suggestion: se.Suggestion,
		Retryable:  se.Retryable,
	}
	if se.Cause != nil {
		je.Cause = se.Cause.Error()
	}

	return json.Marshal(je)
}

// FormatForLog returns key-value pairs suitable for slog attributes.
func FormatForLog(err error) map[string]any {
	if err == nil {
		return nil
	}

	se, ok := err.(*SearchError)
	if !ok {
		return map[string]any{"error": err.Error()}
	}

	result := map[string]any{
		"error_code": se.Code,
		"message":    se.Message,
		"category":   string(se.Category),
		"severity":   string(se.Severity),
		"retryable":  se.Retryable,
	}
	if se.Cause != nil {
		result["cause"] = se.Cause.Error()
	}
	if se.Suggestion != "" {
		result["suggestion"] = se.Suggestion
	}
	for k, v := range se.Details {
		result["detail_"+k] = v
	}

	return result
}
