package llm

import (
	"context"
	"regexp"
	"strings"
)

// Guardrail inspects or rewrites document content before it reaches the model.
type Guardrail interface {
	Apply(ctx context.Context, content string) (string, error)
}

// GuardrailFunc adapts a function to Guardrail.
type GuardrailFunc func(ctx context.Context, content string) (string, error)

func (f GuardrailFunc) Apply(ctx context.Context, content string) (string, error) {
	return f(ctx, content)
}

var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)
	reCard  = regexp.MustCompile(`\b(?:\d[ -]?){13,19}\b`)
	rePhone = regexp.MustCompile(`(?:\+\d{1,3}[\s.\-]?)?\(?\d{2,4}\)?[\s.\-]?\d{3,4}[\s.\-]?\d{4}\b`)
)

// PIIRedactor masks e-mail addresses, card numbers and phone-like digit runs.
type PIIRedactor struct{}

func (PIIRedactor) Apply(_ context.Context, content string) (string, error) {
	content = reEmail.ReplaceAllString(content, "[EMAIL]")
	content = reCard.ReplaceAllString(content, "[CARD]")
	content = rePhone.ReplaceAllString(content, "[PHONE]")
	return content, nil
}

// InjectionNotice replaces content that tries to override the model's instructions.
const InjectionNotice = "[Contenido omitido: posible inyección de instrucciones]"

var injectionPhrases = []string{
	"ignore previous instructions",
	"ignore all previous instructions",
	"ignore the above",
	"disregard previous instructions",
	"you are now",
	"system prompt",
	"ignora las instrucciones anteriores",
	"olvida las instrucciones",
}

// InjectionDetector swaps suspicious content for InjectionNotice.
type InjectionDetector struct{}

func (InjectionDetector) Apply(_ context.Context, content string) (string, error) {
	lower := strings.ToLower(content)
	for _, p := range injectionPhrases {
		if strings.Contains(lower, p) {
			return InjectionNotice, nil
		}
	}
	return content, nil
}

// DefaultGuardrails is the built-in chain enabled by GUARDRAILS_ENABLED.
func DefaultGuardrails() []Guardrail {
	return []Guardrail{InjectionDetector{}, PIIRedactor{}}
}
