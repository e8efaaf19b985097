package transport

import (
	"context"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"
)

type logTransport struct {
	next ITransport
}

// NewLogging decorates next with per exchange debug logging. The protocol
// layer itself never logs; observability lives here at the transport edge.
func NewLogging(next ITransport) ITransport {
	return &logTransport{next: next}
}

func (t *logTransport) RoundTrip(ctx context.Context, req *Request) (*Response, error) {
	start := time.Now()
	rsp, err := t.next.RoundTrip(ctx, req)
	logger := logutil.GetLogger(ctx).With(
		zap.String("method", req.Method),
		zap.String("url", req.URL),
		zap.Duration("cost", time.Since(start)),
	)
	if err != nil {
		logger.Error("webdav exchange failed", zap.Error(err))
		return nil, err
	}
	logger.Debug("webdav exchange", zap.Int("status", rsp.StatusCode))
	return rsp, nil
}
