package ui

import (
	"strings"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
)

func TestSetDebug(t *testing.T) {
	InitLogger()

	SetDebug(true)
	assert.Equal(t, log.DebugLevel, log.GetLevel())

	SetDebug(false)
	assert.Equal(t, log.InfoLevel, log.GetLevel())
}

func TestHorizontalRule(t *testing.T) {
	rule := HorizontalRule(8)
	assert.Equal(t, 8, strings.Count(rule, "─"))
}

func TestFormatSource(t *testing.T) {
	assert.Contains(t, FormatSource("manual.pdf", 3), "manual.pdf")
	assert.Contains(t, FormatSource("manual.pdf", 3), "#3")
}

func TestFormatScore(t *testing.T) {
	assert.Contains(t, FormatScore(0.875), "87.5% match")
}
