package runner

import (
	"time"

	"github.com/aretw0/weave/pkg/domain"
)

// Metrics records run level measurements.
type Metrics interface {
	RunFinished(tool string, status domain.NodeStatus, mode string, elapsed time.Duration)
	RelayFinished(chunks, bytes int)
	ToolAnnounced(tool string)
	TransactionAnnounced()
}

type nopMetrics struct{}

func (nopMetrics) RunFinished(string, domain.NodeStatus, string, time.Duration) {}
func (nopMetrics) RelayFinished(int, int)                                       {}
func (nopMetrics) ToolAnnounced(string)                                         {}
func (nopMetrics) TransactionAnnounced()                                        {}
