package domain

// Stream is a lazy, finite sequence of records read from the engine.
// Next returns io.EOF once the remote stream has ended. A stream cannot be
// restarted and must be closed by the consumer.
type Stream[T any] interface {
	Next() (T, error)
	Close() error
}

// Progress is one status update of an image pull.
type Progress struct {
	ID       string `json:"id,omitempty"`
	Status   string `json:"status"`
	Progress string `json:"progress,omitempty"`
}

// BuildLine is a chunk of build output, printed verbatim.
type BuildLine struct {
	Text string
}

// LogLine is one line of combined stdout and stderr container output.
type LogLine struct {
	Text string
}

// LogOptions tunes a log fetch.
type LogOptions struct {
	Follow bool
	// Tail is the number of lines to show from the end, "all" or empty for everything.
	Tail string
}

// CPUStats mirrors the cpu_stats section of an engine stats snapshot.
type CPUStats struct {
	CPUUsage struct {
		TotalUsage        uint64   `json:"total_usage"`
		PercpuUsage       []uint64 `json:"percpu_usage,omitempty"`
		UsageInKernelmode uint64   `json:"usage_in_kernelmode"`
		UsageInUsermode   uint64   `json:"usage_in_usermode"`
	} `json:"cpu_usage"`
	SystemUsage    uint64 `json:"system_cpu_usage,omitempty"`
	OnlineCPUs     uint32 `json:"online_cpus,omitempty"`
	ThrottlingData struct {
		Periods          uint64 `json:"periods"`
		ThrottledPeriods uint64 `json:"throttled_periods"`
		ThrottledTime    uint64 `json:"throttled_time"`
	} `json:"throttling_data"`
}

// BuildContext is a local directory ready to be sent to the engine.
type BuildContext struct {
	Dir      string
	Excludes []string
	// Cleanup releases temporary files, it is never nil.
	Cleanup func()
}
