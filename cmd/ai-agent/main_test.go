package main

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/aman-zulfiqar/confidential-dex/internal/ai"
	"github.com/stretchr/testify/assert"
)

func TestPrintExamples(t *testing.T) {
	var buf bytes.Buffer
	list := printExamples(&buf, false)
	assert.Equal(t, ai.ExampleQuestions, list)
	assert.Contains(t, buf.String(), " 1. "+ai.ExampleQuestions[0])

	buf.Reset()
	list = printExamples(&buf, true)
	assert.Equal(t, ai.WalletQuestions, list)
}

func TestREPL_WalletAndExamples(t *testing.T) {
	var out bytes.Buffer
	s := &session{out: &out}

	s.repl(context.Background(), strings.NewReader(":wallet 0xabc\n:examples\n:help\n:wallet\n\n"))

	got := out.String()
	assert.Contains(t, got, "[0xabc]> ")
	assert.Contains(t, got, ai.WalletQuestions[0])
	assert.Contains(t, got, ":schema")
	assert.Contains(t, got, "bye")
	assert.Empty(t, s.wallet)
	assert.Equal(t, ai.WalletQuestions, s.shown)
}
