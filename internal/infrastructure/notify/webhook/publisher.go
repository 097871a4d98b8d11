package webhook

import (
	"context"
	stderrors "errors"
	"strings"
	"sync"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/valyala/bytebufferpool"
	"github.com/valyala/fasthttp"

	"github.com/rackline/matchplay/internal/domain/notify"
	"github.com/rackline/matchplay/internal/platform/logging"
	"github.com/rackline/matchplay/internal/platform/resilience"
)

var errWebhookTransient = crerr.New("webhook transient failure")

type PublisherConfig struct {
	// Targets receive a POST per change event. Companion services (standings
	// recalculation, push notification fan-out) register here.
	Targets        []string
	Token          string
	Timeout        time.Duration
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Publisher decorates a local broker with HTTP fan-out: every published
// event still reaches in-process subscribers, and is additionally delivered
// to the configured webhook targets. Delivery is fire-and-forget; targets
// refetch state on receipt, so a lost webhook only delays them.
type Publisher struct {
	inner          notify.Broker
	client         *fasthttp.Client
	targets        []string
	token          string
	timeout        time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	wg             sync.WaitGroup
}

func NewPublisher(inner notify.Broker, cfg PublisherConfig, logger *logging.Logger) *Publisher {
	if logger == nil {
		logger = logging.Default()
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	targets := make([]string, 0, len(cfg.Targets))
	for _, target := range cfg.Targets {
		if t := strings.TrimRight(strings.TrimSpace(target), "/"); t != "" {
			targets = append(targets, t)
		}
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Publisher{
		inner:          inner,
		client:         &fasthttp.Client{MaxIdleConnDuration: time.Minute},
		targets:        targets,
		token:          strings.TrimSpace(cfg.Token),
		timeout:        timeout,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type eventPayload struct {
	Table       string `json:"table"`
	Op          string `json:"op"`
	MatchID     string `json:"match_id"`
	ActorTeamID string `json:"actor_team_id,omitempty"`
	EmittedAt   string `json:"emitted_at"`
}

func (p *Publisher) Publish(ctx context.Context, event notify.Event) {
	p.inner.Publish(ctx, event)

	if len(p.targets) == 0 {
		return
	}

	body, err := sonic.Marshal(eventPayload{
		Table:       string(event.Table),
		Op:          string(event.Op),
		MatchID:     event.MatchID,
		ActorTeamID: event.ActorTeamID,
		EmittedAt:   time.Now().UTC().Format(time.RFC3339Nano),
	})
	if err != nil {
		p.logger.ErrorContext(ctx, "marshal webhook payload", "error", err.Error())
		return
	}

	for _, target := range p.targets {
		target := target
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			p.deliver(target, event, body)
		}()
	}
}

func (p *Publisher) Subscribe(matchID string) (<-chan notify.Event, func()) {
	return p.inner.Subscribe(matchID)
}

// Wait blocks until in-flight deliveries finish. Called on shutdown.
func (p *Publisher) Wait() {
	p.wg.Wait()
}

func (p *Publisher) deliver(target string, event notify.Event, body []byte) {
	if p.circuitEnabled {
		if err := p.breaker.Allow(); err != nil {
			p.logger.Warn("webhook circuit breaker rejected delivery",
				"target", target, "state", string(p.breaker.State()))
			return
		}
	}

	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer fasthttp.ReleaseRequest(req)
	defer fasthttp.ReleaseResponse(resp)

	req.SetRequestURI(target)
	req.Header.SetMethod(fasthttp.MethodPost)
	req.Header.SetContentType("application/json")
	if p.token != "" {
		req.Header.Set("X-Matchplay-Webhook-Token", p.token)
	}
	req.SetBodyRaw(body)

	err := p.client.DoTimeout(req, resp, p.timeout)
	if err != nil {
		callErr := crerr.Wrapf(errWebhookTransient, "deliver webhook target=%s: %v", target, err)
		p.recordCircuitResult(callErr)
		p.logger.Warn("webhook delivery failed",
			"target", target, "match_id", event.MatchID, "error", callErr.Error())
		return
	}

	status := resp.StatusCode()
	if status/100 != 2 {
		callErr := crerr.Newf("deliver webhook target=%s status=%d body=%s",
			target, status, previewBody(resp.Body()))
		if isRetryableStatus(status) {
			callErr = crerr.Mark(callErr, errWebhookTransient)
		}
		p.recordCircuitResult(callErr)
		p.logger.Warn("webhook delivery rejected",
			"target", target, "match_id", event.MatchID, "status", status)
		return
	}

	p.recordCircuitResult(nil)
}

func (p *Publisher) recordCircuitResult(err error) {
	if !p.circuitEnabled || p.breaker == nil {
		return
	}
	if err == nil {
		p.breaker.RecordSuccess()
		return
	}
	if stderrors.Is(err, errWebhookTransient) {
		p.breaker.RecordFailure()
		return
	}
	p.breaker.RecordSuccess()
}

func previewBody(raw []byte) string {
	const maxPreview = 512

	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	if len(raw) > maxPreview {
		_, _ = buf.Write(raw[:maxPreview])
		_, _ = buf.WriteString("...(truncated)")
	} else {
		_, _ = buf.Write(raw)
	}

	return strings.TrimSpace(buf.String())
}

func isRetryableStatus(status int) bool {
	return status == fasthttp.StatusRequestTimeout ||
		status == fasthttp.StatusTooManyRequests ||
		status >= fasthttp.StatusInternalServerError
}
