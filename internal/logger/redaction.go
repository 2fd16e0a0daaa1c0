package logger

import (
	"io"
	"regexp"
)

// A redaction rule pairs a label with the pattern it masks. The label
// survives into the masked output, so a leaked line still tells the
// operator which secret family it carried.
type redactionRule struct {
	label string
	re    *regexp.Regexp
}

// Redactor masks credentials before they reach a log sink. The default
// rule set covers the secrets this process actually holds: the OpenAI
// API key, the Telegram bot token, and the generic header and key-value
// shapes they travel in.
type Redactor struct {
	rules []redactionRule
}

// NewRedactor builds a redactor with the default rule set.
func NewRedactor() *Redactor {
	return &Redactor{
		rules: []redactionRule{
			{"openai_key", regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`)},
			{"telegram_token", regexp.MustCompile(`\d{8,10}:[A-Za-z0-9_-]{30,}`)},
			{"bearer", regexp.MustCompile(`Bearer\s+[A-Za-z0-9._-]+`)},
			{"credential", regexp.MustCompile(`(?i)(?:api_key|token|secret)["\s:=]+[^\s",}]+`)},
		},
	}
}

// AddRule registers an extra pattern under the given label.
func (r *Redactor) AddRule(label, pattern string) error {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return err
	}
	r.rules = append(r.rules, redactionRule{label: label, re: re})
	return nil
}

// Redact masks every rule match in s.
func (r *Redactor) Redact(s string) string {
	for _, rule := range r.rules {
		s = rule.re.ReplaceAllString(s, "[redacted:"+rule.label+"]")
	}
	return s
}

// Wrap returns a writer that redacts everything written through it.
func (r *Redactor) Wrap(w io.Writer) io.Writer {
	return &maskedWriter{dst: w, redactor: r}
}

type maskedWriter struct {
	dst      io.Writer
	redactor *Redactor
}

// Write reports the original length even though masking may change it,
// so zerolog never sees a short write.
func (w *maskedWriter) Write(p []byte) (int, error) {
	if _, err := w.dst.Write([]byte(w.redactor.Redact(string(p)))); err != nil {
		return 0, err
	}
	return len(p), nil
}
