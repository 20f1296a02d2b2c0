package async

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apaudit/invoice-auditor/internal/discrepancy"
	"github.com/apaudit/invoice-auditor/internal/entity"
	"github.com/apaudit/invoice-auditor/internal/matching"
	"github.com/apaudit/invoice-auditor/internal/pipeline"
	"github.com/apaudit/invoice-auditor/internal/validation"
)

type emptyLookup struct{}

func (emptyLookup) FindByNumber(string) *entity.PurchaseOrder { return nil }
func (emptyLookup) FindBySupplier(string, float64) []*entity.PurchaseOrder {
	return nil
}
func (emptyLookup) FindByItemDescription([]entity.LineItem, float64) []*entity.PurchaseOrder {
	return nil
}

const payload = `{
	"invoice_number": "INV-1",
	"invoice_date": "2024-03-05",
	"supplier_name": "Acme Ltd",
	"currency": "GBP",
	"line_items": [
		{"description": "Blue Widget 10mm", "quantity": 1, "unit_price": 2.0, "line_total": "2.00"}
	],
	"totals": {"subtotal": "2.00", "total_due": "2.00"}
}`

func newQueue(sink Sink, opts ...Option) *AuditQueue {
	tol := validation.DefaultTolerances()
	engine := matching.NewEngine(emptyLookup{}, matching.DefaultConfig(), tol, nil)
	proc := pipeline.NewProcessor(engine, discrepancy.NewClassifier(tol), tol, 3, nil)
	return NewAuditQueue(proc, sink, nil, opts...)
}

func TestAuditQueue_ProcessesJobs(t *testing.T) {
	var mu sync.Mutex
	var results []*pipeline.Result

	q := newQueue(func(job Job, res *pipeline.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		require.NoError(t, err)
		results = append(results, res)
	}, WithWorkers(2), WithQueueSize(8))

	for i := 0; i < 5; i++ {
		require.NoError(t, q.Enqueue(context.Background(), Job{Path: "inv.json", Payload: []byte(payload)}))
	}
	q.Shutdown(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, results, 5)
	for _, res := range results {
		assert.Equal(t, "INV-1", res.InvoiceNumber)
		assert.True(t, res.Resolution.HumanReviewRequired, "no catalog means every run escalates")
	}
}

func TestAuditQueue_MalformedPayloadReachesSink(t *testing.T) {
	var mu sync.Mutex
	var sawErr bool

	q := newQueue(func(job Job, res *pipeline.Result, err error) {
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			sawErr = true
			assert.Nil(t, res)
		}
	}, WithWorkers(1))

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "bad.json", Payload: []byte("{")}))
	q.Shutdown(context.Background())

	mu.Lock()
	defer mu.Unlock()
	assert.True(t, sawErr)
}

func TestAuditQueue_EnqueueAfterShutdownIsNoop(t *testing.T) {
	q := newQueue(nil, WithWorkers(1))
	q.Shutdown(context.Background())

	require.NoError(t, q.Enqueue(context.Background(), Job{Path: "late.json", Payload: []byte(payload)}))
	// Second shutdown must not panic on a closed channel.
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	q.Shutdown(ctx)
}
