package services

import "github.com/prometheus/client_golang/prometheus"

var (
	recordsIngestedCounter prometheus.Counter
	recordsRejectedCounter *prometheus.CounterVec
	rowsInsertedCounter    *prometheus.CounterVec
	batchRunsCounter       *prometheus.CounterVec
)

func init() {
	recordsIngestedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "drug_records_ingested_total",
			Help: "Total number of raw drug records loaded into the database.",
		},
	)
	recordsRejectedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drug_records_rejected_total",
			Help: "Total number of raw drug records rejected, by error kind.",
		},
		[]string{"kind"},
	)
	rowsInsertedCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drug_rows_inserted_total",
			Help: "Total number of new rows written, by table.",
		},
		[]string{"table"},
	)
	batchRunsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "drug_ingestion_runs_total",
			Help: "Total number of finished ingestion batches, by terminal state.",
		},
		[]string{"state"},
	)
	prometheus.MustRegister(recordsIngestedCounter, recordsRejectedCounter, rowsInsertedCounter, batchRunsCounter)
}
