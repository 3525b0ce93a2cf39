package lexutil

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitIdentifier_SnakeCase(t *testing.T) {
	assert.Equal(t, []string{"max", "doc", "bytes"}, SplitIdentifier("max_doc_bytes"))
}

func TestSplitIdentifier_CamelCase(t *testing.T) {
	assert.Equal(t, []string{"parse", "HTTP", "Request"}, SplitIdentifier("parseHTTPRequest"))
}

func TestSplitCamelCase_Empty(t *testing.T) {
	assert.Equal(t, []string{}, SplitCamelCase(""))
}
