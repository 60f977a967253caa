package logger

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/mem"

	"github.com/aws/aws-sdk-go-v2/aws"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

type sourceStat struct {
	tickerFetches int64
	quoteBatches  int64
	rowsMerged    int64
}

var (
	errorsTotal    int64
	warnsTotal     int64
	snapshotWrites int64
	sources        sync.Map // map[string]*sourceStat
)

func recordWarn(string) {
	atomic.AddInt64(&warnsTotal, 1)
}

func recordError(string) {
	atomic.AddInt64(&errorsTotal, 1)
}

// IncrementTickerFetch counts one catalog fetch against a source.
func IncrementTickerFetch(sourceKey string) {
	atomic.AddInt64(&sourceStats(sourceKey).tickerFetches, 1)
}

// IncrementQuoteBatch counts one quote fetch batch against a source.
func IncrementQuoteBatch(sourceKey string) {
	atomic.AddInt64(&sourceStats(sourceKey).quoteBatches, 1)
}

// AddRowsMerged counts rows folded into a source's cached quote table.
func AddRowsMerged(sourceKey string, n int) {
	atomic.AddInt64(&sourceStats(sourceKey).rowsMerged, int64(n))
}

// IncrementSnapshotWrite counts one persisted snapshot replacement.
func IncrementSnapshotWrite() {
	atomic.AddInt64(&snapshotWrites, 1)
}

func sourceStats(key string) *sourceStat {
	v, _ := sources.LoadOrStore(key, &sourceStat{})
	return v.(*sourceStat)
}

// StartReport begins periodic logging of runtime and sync statistics,
// publishing them to CloudWatch when the client is configured.
func StartReport(ctx context.Context, log *Log, interval time.Duration) {
	ticker := time.NewTicker(interval)
	go func() {
		for {
			select {
			case <-ctx.Done():
				ticker.Stop()
				return
			case <-ticker.C:
				logReport(ctx, log)
			}
		}
	}()
}

func logReport(ctx context.Context, log *Log) {
	cpuPercent, _ := cpu.Percent(0, false)
	memStats, _ := mem.VirtualMemory()

	cpuPct := 0.0
	if len(cpuPercent) > 0 {
		cpuPct = cpuPercent[0]
	}

	sourceData := map[string]map[string]int64{}
	sources.Range(func(k, v any) bool {
		key := k.(string)
		st := v.(*sourceStat)
		sourceData[key] = map[string]int64{
			"ticker_fetches": atomic.LoadInt64(&st.tickerFetches),
			"quote_batches":  atomic.LoadInt64(&st.quoteBatches),
			"rows_merged":    atomic.LoadInt64(&st.rowsMerged),
		}
		return true
	})

	fields := Fields{
		"errors":          atomic.LoadInt64(&errorsTotal),
		"warns":           atomic.LoadInt64(&warnsTotal),
		"snapshot_writes": atomic.LoadInt64(&snapshotWrites),
		"goroutines":      runtime.NumGoroutine(),
		"cpu_percent":     cpuPct,
		"memory_mb":       int64(memStats.Used) / 1024 / 1024,
		"sources":         sourceData,
	}

	log.WithComponent("report").WithFields(fields).Info("sync report")

	var data []cwtypes.MetricDatum
	data = append(data,
		cwtypes.MetricDatum{MetricName: aws.String("CPUPercent"), Unit: cwtypes.StandardUnitPercent, Value: aws.Float64(cpuPct)},
		cwtypes.MetricDatum{MetricName: aws.String("MemoryMB"), Unit: cwtypes.StandardUnitMegabytes, Value: aws.Float64(float64(memStats.Used) / 1024 / 1024)},
		cwtypes.MetricDatum{MetricName: aws.String("Errors"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&errorsTotal)))},
		cwtypes.MetricDatum{MetricName: aws.String("Warns"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&warnsTotal)))},
		cwtypes.MetricDatum{MetricName: aws.String("SnapshotWrites"), Unit: cwtypes.StandardUnitCount, Value: aws.Float64(float64(atomic.LoadInt64(&snapshotWrites)))},
	)

	for key, stats := range sourceData {
		dims := []cwtypes.Dimension{{Name: aws.String("Source"), Value: aws.String(key)}}
		data = append(data,
			cwtypes.MetricDatum{
				MetricName: aws.String("TickerFetches"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["ticker_fetches"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("QuoteBatches"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["quote_batches"])),
			},
			cwtypes.MetricDatum{
				MetricName: aws.String("RowsMerged"),
				Unit:       cwtypes.StandardUnitCount,
				Dimensions: dims,
				Value:      aws.Float64(float64(stats["rows_merged"])),
			},
		)
	}

	publishMetrics(ctx, data)
}
