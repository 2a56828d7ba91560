package finder

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/phone-finder/internal/model"
	"github.com/sells-group/phone-finder/internal/resilience"
	"github.com/sells-group/phone-finder/pkg/webhook"
)

// PayloadVersion is sent with every lookup payload.
const PayloadVersion = "1.0.0"

// PayloadBuilder produces one payload variant for a company.
type PayloadBuilder func(company string, req model.Request, now time.Time) webhook.Payload

// StandardPayload is the payload format the webhook expects today.
func StandardPayload(company string, req model.Request, now time.Time) webhook.Payload {
	return webhook.Payload{
		CompanyName: company,
		Country:     req.CountryPtr(),
		PhoneTypes:  req.PhoneTypes,
		MaxResults:  req.MaxResults,
		Timestamp:   now.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		Source:      model.Source,
		Version:     PayloadVersion,
	}
}

// DispatcherConfig controls the attempt sequence.
type DispatcherConfig struct {
	// UserAgents are the identities tried for every payload variant.
	UserAgents []string
	// Payloads are the variants tried in order. Default: StandardPayload.
	Payloads []PayloadBuilder
	// MaxAttempts is the ceiling at which a transient transport failure
	// becomes fatal. A non-transient client error is fatal at once.
	// Default: 3.
	MaxAttempts int
	// IndividualBackoff and BulkBackoff are the waits after a failed attempt.
	IndividualBackoff time.Duration
	BulkBackoff       time.Duration
}

// DefaultDispatcherConfig returns the production attempt sequence.
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		UserAgents:        webhook.DefaultUserAgents(),
		Payloads:          []PayloadBuilder{StandardPayload},
		MaxAttempts:       3,
		IndividualBackoff: time.Second,
		BulkBackoff:       500 * time.Millisecond,
	}
}

// Dispatcher finds the first successful webhook response for a company by
// trying each payload variant with each client identity.
type Dispatcher struct {
	client webhook.Client
	cfg    DispatcherConfig
	wait   resilience.WaitFunc
	now    func() time.Time
}

// NewDispatcher creates a Dispatcher. Zero fields of cfg fall back to
// DefaultDispatcherConfig.
func NewDispatcher(client webhook.Client, cfg DispatcherConfig) *Dispatcher {
	def := DefaultDispatcherConfig()
	if cfg.UserAgents == nil {
		cfg.UserAgents = def.UserAgents
	}
	if cfg.Payloads == nil {
		cfg.Payloads = def.Payloads
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	return &Dispatcher{
		client: client,
		cfg:    cfg,
		wait:   resilience.Wait,
		now:    time.Now,
	}
}

func (d *Dispatcher) backoff(mode model.Mode) time.Duration {
	if mode == model.ModeBulk {
		return d.cfg.BulkBackoff
	}
	return d.cfg.IndividualBackoff
}

// Dispatch returns the first 200 response for company. Once a 200 arrives no
// further identities or variants are tried.
func (d *Dispatcher) Dispatch(ctx context.Context, company string, req model.Request) (*webhook.Response, error) {
	log := zap.L().With(zap.String("company", company), zap.String("mode", string(req.Mode)))

	var last *webhook.Response
	attempts := 0

	for _, build := range d.cfg.Payloads {
		payload := build(company, req, d.now())

		for _, ua := range d.cfg.UserAgents {
			attempts++
			log.Debug("webhook attempt", zap.Int("attempt", attempts), zap.String("user_agent", ua))

			resp, err := d.client.Lookup(ctx, payload, ua)
			if err != nil {
				transient := resilience.IsTransient(err)
				log.Warn("webhook attempt failed",
					zap.Int("attempt", attempts),
					zap.Bool("transient", transient),
					zap.Error(err),
				)
				if ctx.Err() != nil {
					return nil, ctx.Err()
				}
				// Only a transient failure can go differently on the next attempt.
				if !transient || attempts >= d.cfg.MaxAttempts {
					return nil, &TransportError{Attempts: attempts, Err: err}
				}
				if err := d.wait(ctx, d.backoff(req.Mode)); err != nil {
					return nil, err
				}
				continue
			}

			last = resp
			if resp.OK() {
				log.Info("webhook attempt succeeded", zap.Int("attempt", attempts), zap.String("user_agent", ua))
				return resp, nil
			}

			log.Warn("webhook returned non-success status, trying next identity",
				zap.Int("attempt", attempts),
				zap.Int("status", resp.StatusCode),
			)
			if resilience.IsRetryableStatus(resp.StatusCode) {
				if attempts >= d.cfg.MaxAttempts {
					return nil, resolutionFailed(company, req.Mode, last)
				}
				if err := d.wait(ctx, d.backoff(req.Mode)); err != nil {
					return nil, err
				}
			}
		}
	}

	return nil, resolutionFailed(company, req.Mode, last)
}

func resolutionFailed(company string, mode model.Mode, last *webhook.Response) *ResolutionFailedError {
	failed := &ResolutionFailedError{Company: company, Mode: mode}
	if last != nil {
		failed.LastStatus = last.StatusCode
		failed.LastBody = last.Body
	}
	return failed
}
