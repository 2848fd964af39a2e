package worker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"churchadmin/internal/amqp"
	"churchadmin/internal/backend/memory"
	"churchadmin/internal/core"
	"churchadmin/internal/report"
	sheetsmem "churchadmin/internal/sheets/memory"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seed(t *testing.T) (*memory.Store, string) {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	church, err := store.Create(ctx, core.KindChurch, map[string]any{"abbreviatedChurchName": "Central"})
	require.NoError(t, err)
	for i := range 5 {
		_, err := store.Create(ctx, core.KindOfferingIncome, map[string]any{
			"date":        fmt.Sprintf("2024-05-0%d", i+1),
			"type":        "offering",
			"amount":      fmt.Sprintf("%d.50", 10+i),
			"currency":    "PEN",
			"theirChurch": church.ID,
		})
		require.NoError(t, err)
	}
	_, err = store.Create(ctx, core.KindOfferingIncome, map[string]any{
		"date": "2024-04-30", "type": "offering", "amount": "1", "currency": "PEN", "recordStatus": "inactive",
	})
	require.NoError(t, err)
	return store, church.ID
}

func TestReportWorker_Handle(t *testing.T) {
	store, _ := seed(t)
	sheet := sheetsmem.New()
	w := NewReportWorker(store, report.NewTabExporter(sheet), 2, quietLogger())

	req := amqp.NewReportRequest(core.KindOfferingIncome, "admin@example.org")
	req.Status = core.StatusActive
	require.NoError(t, w.Handle(context.Background(), req))

	tab := report.TabName(core.KindOfferingIncome.Plural())
	rows := sheet.Rows(tab)
	require.Len(t, rows, 6, "header plus every active record across pages")
	assert.Equal(t, "ID", rows[0][0])
	for _, r := range rows[1:] {
		assert.Contains(t, r, "Central", "church IDs resolve to names")
	}
}

func TestReportWorker_HandleAllStatuses(t *testing.T) {
	store, _ := seed(t)
	sheet := sheetsmem.New()
	w := NewReportWorker(store, report.NewTabExporter(sheet), 0, quietLogger())

	require.NoError(t, w.Handle(context.Background(), amqp.NewReportRequest(core.KindOfferingIncome, "")))
	assert.Len(t, sheet.Rows(report.TabName(core.KindOfferingIncome.Plural())), 7)
}

func TestReportWorker_EmptyKind(t *testing.T) {
	sheet := sheetsmem.New()
	w := NewReportWorker(memory.New(), report.NewTabExporter(sheet), 10, quietLogger())

	require.NoError(t, w.Handle(context.Background(), amqp.NewReportRequest(core.KindZone, "")))
	assert.Empty(t, sheet.Tabs(), "nothing to export")
}

type failingRepo struct {
	*memory.Store
	kind core.Kind
}

func (f failingRepo) Search(ctx context.Context, kind core.Kind, q core.SearchQuery) ([]core.Record, error) {
	if kind == f.kind {
		return nil, errors.New("backend unavailable")
	}
	return f.Store.Search(ctx, kind, q)
}

func TestReportWorker_Errors(t *testing.T) {
	store, _ := seed(t)

	t.Run("search failure", func(t *testing.T) {
		w := NewReportWorker(failingRepo{store, core.KindOfferingIncome}, report.NewTabExporter(sheetsmem.New()), 10, quietLogger())
		err := w.Handle(context.Background(), amqp.NewReportRequest(core.KindOfferingIncome, ""))
		assert.ErrorContains(t, err, "backend unavailable")
	})

	t.Run("relation lookup failure", func(t *testing.T) {
		w := NewReportWorker(failingRepo{store, core.KindChurch}, report.NewTabExporter(sheetsmem.New()), 10, quietLogger())
		err := w.Handle(context.Background(), amqp.NewReportRequest(core.KindOfferingIncome, ""))
		assert.ErrorContains(t, err, "resolve church names")
	})

	t.Run("export failure", func(t *testing.T) {
		w := NewReportWorker(store, exporterFunc(func(context.Context, report.Sheet) (string, error) {
			return "", errors.New("quota exceeded")
		}), 10, quietLogger())
		err := w.Handle(context.Background(), amqp.NewReportRequest(core.KindOfferingIncome, ""))
		assert.ErrorContains(t, err, "quota exceeded")
	})
}

type exporterFunc func(context.Context, report.Sheet) (string, error)

func (f exporterFunc) Export(ctx context.Context, s report.Sheet) (string, error) { return f(ctx, s) }

func TestScheduler(t *testing.T) {
	store, _ := seed(t)
	_, err := store.Create(context.Background(), core.KindOfferingExpense, map[string]any{
		"date": "2024-05-03", "type": "operational", "amount": "40", "currency": "PEN",
	})
	require.NoError(t, err)

	sheet := sheetsmem.New()
	w := NewReportWorker(store, report.NewTabExporter(sheet), 10, quietLogger())
	s, err := NewScheduler("0 2 * * *", w, context.Background, quietLogger())
	require.NoError(t, err)

	s.RunNightly(context.Background())

	assert.Len(t, sheet.Rows(report.TabName(core.KindOfferingIncome.Plural())), 6, "only active income")
	assert.Len(t, sheet.Rows(report.TabName(core.KindOfferingExpense.Plural())), 2)

	s.Start()
	s.Stop()
}

func TestScheduler_InvalidSpec(t *testing.T) {
	w := NewReportWorker(memory.New(), report.NewTabExporter(sheetsmem.New()), 10, quietLogger())
	_, err := NewScheduler("every night", w, context.Background, quietLogger())
	assert.Error(t, err)
}
