package notifier

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shahar-caura/supportintent/internal/intent"
	"github.com/shahar-caura/supportintent/internal/provider"
)

// DefaultThreshold is the fallback share that triggers a degradation alert.
const DefaultThreshold = 0.5

// Degradation summarizes a batch that leaned on keyword fallback.
type Degradation struct {
	Source    string
	Fallbacks int
	Total     int
}

// Share is the fraction of classified items that used the fallback.
func (d Degradation) Share() float64 {
	if d.Total == 0 {
		return 0
	}
	return float64(d.Fallbacks) / float64(d.Total)
}

func (d Degradation) String() string {
	return fmt.Sprintf("%s: %d of %d classifications (%.0f%%) used keyword fallback; check the model provider",
		d.Source, d.Fallbacks, d.Total, d.Share()*100)
}

// degradationNotifier is implemented by notifiers that render a
// Degradation richer than its plain text.
type degradationNotifier interface {
	NotifyDegradation(ctx context.Context, d Degradation) error
}

// DegradationAlert tells operators when a batch leaned on keyword fallback,
// which usually means the model provider is failing.
type DegradationAlert struct {
	notifier  provider.Notifier
	threshold float64
	source    string
	logger    *slog.Logger
}

// NewDegradationAlert alerts through n when at least threshold (0, 1] of a
// batch's results are fallbacks. source names the sender in messages.
func NewDegradationAlert(n provider.Notifier, threshold float64, source string, logger *slog.Logger) *DegradationAlert {
	if threshold <= 0 || threshold > 1 {
		threshold = DefaultThreshold
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &DegradationAlert{notifier: n, threshold: threshold, source: source, logger: logger}
}

// Check inspects results and notifies when the fallback share reaches the
// threshold. It reports whether an alert was sent. Empty slots left by a
// canceled batch are not counted. A nil *DegradationAlert does nothing.
func (a *DegradationAlert) Check(ctx context.Context, results []intent.Result) (bool, error) {
	if a == nil {
		return false, nil
	}

	done, fallbacks := 0, 0
	for _, r := range results {
		switch r.Source {
		case intent.SourceRemote:
			done++
		case intent.SourceFallback:
			done++
			fallbacks++
		}
	}
	if done == 0 {
		return false, nil
	}

	d := Degradation{Source: a.source, Fallbacks: fallbacks, Total: done}
	if d.Share() < a.threshold {
		return false, nil
	}

	var err error
	if dn, ok := a.notifier.(degradationNotifier); ok {
		err = dn.NotifyDegradation(ctx, d)
	} else {
		err = a.notifier.Notify(ctx, d.String())
	}
	if err != nil {
		a.logger.Warn("degradation alert failed", "error", err)
		return false, err
	}
	a.logger.Info("degradation alert sent", "fallbacks", fallbacks, "items", done)
	return true, nil
}
