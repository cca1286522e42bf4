package authcore

import (
	"context"
)

// LogSender is the development CodeSender: it writes the code to the logger
// instead of delivering it. Production deployments plug in a real channel
// such as delivery/mailgun.
type LogSender struct {
	logger Logger
}

// NewLogSender returns a sender writing through logger, falling back to the
// default logger when nil.
func NewLogSender(logger Logger) *LogSender {
	if logger == nil {
		logger = defLogger{}
	}
	return &LogSender{logger: logger}
}

var _ CodeSender = (*LogSender)(nil)

func (s *LogSender) SendCode(ctx context.Context, email string, purpose Purpose, code string) error {
	s.logger.Info("verification code issued to=%s purpose=%s code=%s", email, purpose, code)
	return nil
}
