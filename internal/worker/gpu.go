package worker

import (
	"context"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/trinetra-retail/trinetra/internal/metrics"
)

const gpuPollInterval = 10 * time.Second

// PollGPU periodically samples GPU utilization and VRAM usage via
// nvidia-smi and exports them as gauges. On hosts without the tool the
// loop silently keeps the gauges at zero; the worker itself is unaffected.
func PollGPU(ctx context.Context) {
	ticker := time.NewTicker(gpuPollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sampleGPU(ctx)
		}
	}
}

func sampleGPU(ctx context.Context) {
	out, err := exec.CommandContext(ctx, "nvidia-smi",
		"--query-gpu=utilization.gpu,memory.used",
		"--format=csv,noheader,nounits").Output()
	if err != nil {
		return
	}

	parts := strings.Split(strings.TrimSpace(strings.SplitN(string(out), "\n", 2)[0]), ",")
	if len(parts) != 2 {
		return
	}
	if util, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64); err == nil {
		metrics.GPUUtilization.Set(util)
	}
	if vram, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64); err == nil {
		metrics.GPUVRAMUsedMB.Set(vram)
	}
}
