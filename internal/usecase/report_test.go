package usecase

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"EquityPulse/internal/domain/models"
	domrepo "EquityPulse/internal/domain/repository"
	domsvc "EquityPulse/internal/domain/service"
)

type stubSignals struct {
	events []*models.SignalEvent
	err    error
}

func (s *stubSignals) PublishSignal(_ context.Context, ev *models.SignalEvent) error {
	if s.err != nil {
		return s.err
	}
	s.events = append(s.events, ev)
	return nil
}

func (s *stubSignals) Close() error { return nil }

var _ domrepo.SignalPublisher = (*stubSignals)(nil)

func newTestReport(t *testing.T, src domsvc.SnapshotSource, signals domrepo.SignalPublisher) *ReportUseCase {
	t.Helper()
	return NewReportUseCase(newTestAnalysis(t, src, &stubMetrics{}), signals, testLogger(t))
}

func TestGetReportAllSections(t *testing.T) {
	src := &stubSnapshots{snap: fixtureSnapshot()}
	uc := newTestReport(t, src, nil)

	rep, err := uc.GetReport(context.Background(), GetReportParams{Symbol: "ACME", Horizon: 30, Paths: 500})

	require.NoError(t, err)
	// One snapshot fetch feeds all four sections.
	assert.Equal(t, 1, src.calls)
	require.NotNil(t, rep.Score)
	require.NotNil(t, rep.Insider)
	require.NotNil(t, rep.Sentiment)
	require.NotNil(t, rep.Projection)
	assert.Nil(t, rep.Errors)
	assert.Equal(t, "ACME", rep.Symbol)
	assert.False(t, rep.GeneratedAt.IsZero())
	assert.Equal(t, models.InsiderNetBuying, rep.Insider.Kind)
	assert.Equal(t, 30, rep.Projection.HorizonDays)
}

func TestGetReportSectionFailureIsolated(t *testing.T) {
	snap := fixtureSnapshot()
	snap.Closes = snap.Closes[:10]
	uc := newTestReport(t, &stubSnapshots{snap: snap}, nil)

	rep, err := uc.GetReport(context.Background(), GetReportParams{Symbol: "ACME"})

	require.NoError(t, err)
	assert.Nil(t, rep.Projection)
	require.Contains(t, rep.Errors, "projection")
	assert.Contains(t, rep.Errors["projection"], "insufficient price history")
	assert.NotNil(t, rep.Score)
	assert.NotNil(t, rep.Insider)
	assert.NotNil(t, rep.Sentiment)
}

func TestGetReportSnapshotErrorIsFatal(t *testing.T) {
	uc := newTestReport(t, &stubSnapshots{err: errors.New("upstream down")}, nil)

	rep, err := uc.GetReport(context.Background(), GetReportParams{Symbol: "ACME"})

	require.Error(t, err)
	assert.Nil(t, rep)
	assert.Contains(t, err.Error(), "upstream down")
}

func TestGetReportSymbolRequired(t *testing.T) {
	src := &stubSnapshots{snap: fixtureSnapshot()}
	uc := newTestReport(t, src, nil)

	_, err := uc.GetReport(context.Background(), GetReportParams{})

	require.Error(t, err)
	assert.Zero(t, src.calls)
}

func TestGetReportPublishesCondensedSignal(t *testing.T) {
	sig := &stubSignals{}
	uc := newTestReport(t, &stubSnapshots{snap: fixtureSnapshot()}, sig)

	rep, err := uc.GetReport(context.Background(), GetReportParams{Symbol: "ACME", Horizon: 30, Paths: 200})

	require.NoError(t, err)
	require.Len(t, sig.events, 1)
	ev := sig.events[0]
	assert.Equal(t, "ACME", ev.Symbol)
	assert.Equal(t, rep.Score.FinalScore, ev.FinalScore)
	assert.Equal(t, rep.Score.Rating, ev.Rating)
	assert.Equal(t, string(rep.Insider.Kind), ev.InsiderKind)
	assert.Equal(t, string(rep.Sentiment.Label), ev.SentimentLabel)
	assert.Equal(t, rep.Projection.P50, ev.MedianProjection)
	assert.Equal(t, rep.GeneratedAt.Unix(), ev.GeneratedAt)
}

func TestGetReportPublishFailureNonFatal(t *testing.T) {
	sig := &stubSignals{err: errors.New("broker down")}
	uc := newTestReport(t, &stubSnapshots{snap: fixtureSnapshot()}, sig)

	rep, err := uc.GetReport(context.Background(), GetReportParams{Symbol: "ACME", Horizon: 30, Paths: 200})

	require.NoError(t, err)
	assert.NotNil(t, rep.Score)
}
