package audit

import (
	"sort"
	"strings"

	"github.com/rs/zerolog"
)

// Logger writes account audit records as structured log lines tagged
// audit=true.
type Logger struct {
	log zerolog.Logger
}

func New(log zerolog.Logger) *Logger {
	return &Logger{
		log: log.With().Bool("audit", true).Logger(),
	}
}

// Record logs one audited action. Failed results and admin actions go out at
// warn level. Email fields are masked.
func (l *Logger) Record(action string, fields map[string]string) {
	ev := l.log.Info()
	if fields["result"] == "error" || strings.HasPrefix(action, "admin.") {
		ev = l.log.Warn()
	}
	ev = ev.Str("action", action)

	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fields[k]
		if k == "email" {
			v = maskEmail(v)
		}
		ev = ev.Str(k, v)
	}
	ev.Msg("audit")
}

// maskEmail keeps the first two characters and the domain.
func maskEmail(email string) string {
	if len(email) < 5 {
		return "***"
	}
	at := strings.IndexByte(email, '@')
	if at < 0 {
		return email[:2] + "***"
	}
	if at < 2 {
		return email[:1] + "***" + email[at:]
	}
	return email[:2] + "***" + email[at:]
}
