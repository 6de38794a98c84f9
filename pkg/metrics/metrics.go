package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	RateLimitAllowed = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "postboard", Name: "rate_limit_allowed_total", Help: "Number of allowed requests by limiter type."},
		[]string{"limiter"},
	)
	RateLimitRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "postboard", Name: "rate_limit_rejected_total", Help: "Number of rejected requests by limiter type."},
		[]string{"limiter"},
	)
	PostOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "postboard", Name: "post_operations_total", Help: "Post workflow operations by name and outcome (ok|not_found|error)."},
		[]string{"op", "result"},
	)
	BlobBytesUploaded = prometheus.NewCounter(
		prometheus.CounterOpts{Namespace: "postboard", Name: "blob_bytes_uploaded_total", Help: "Bytes written to the blob store for post images."},
	)
	TagCacheLookups = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: "postboard", Name: "tag_cache_lookups_total", Help: "Tag name cache lookups by result (hit|miss)."},
		[]string{"result"},
	)
)

func RegisterCollectors(reg prometheus.Registerer) {
	reg.MustRegister(RateLimitAllowed)
	reg.MustRegister(RateLimitRejected)
	reg.MustRegister(PostOperations)
	reg.MustRegister(BlobBytesUploaded)
	reg.MustRegister(TagCacheLookups)
}
