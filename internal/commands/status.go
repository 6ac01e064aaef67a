package commands

import (
	"fmt"
	"os"
	"runtime"
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/process"
)

func (h *Handler) handleStatus(i *discordgo.InteractionCreate) error {
	uptime := h.clock.Now().Sub(h.startedAt).Round(time.Second)

	memValue := "unavailable"
	cpuValue := "unavailable"
	if proc, err := process.NewProcess(int32(os.Getpid())); err == nil {
		if mem, err := proc.MemoryInfo(); err == nil {
			memValue = fmt.Sprintf("%.1f MB", float64(mem.RSS)/(1024*1024))
		}
		if cpu, err := proc.CPUPercent(); err == nil {
			cpuValue = fmt.Sprintf("%.1f%%", cpu)
		}
	}

	health := h.wd.Status()
	names := make([]string, 0, len(health))
	for name := range health {
		names = append(names, name)
	}
	sort.Strings(names)
	var parts []string
	for _, name := range names {
		state := "healthy"
		if !health[name] {
			state = "UNHEALTHY"
		}
		parts = append(parts, name+": "+state)
	}
	healthValue := "no components registered"
	if len(parts) > 0 {
		healthValue = strings.Join(parts, "\n")
	}

	return h.respond(i, &discordgo.MessageEmbed{
		Title: "Sentinel Status",
		Color: embedColor,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Uptime", Value: uptime.String(), Inline: true},
			{Name: "Memory", Value: memValue, Inline: true},
			{Name: "CPU", Value: cpuValue, Inline: true},
			{Name: "Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
			{Name: "Tracked windows", Value: fmt.Sprintf("%d", h.engine.Windows().TrackedKeys()), Inline: true},
			{Name: "Actors with strikes", Value: fmt.Sprintf("%d", h.engine.Ledger().TrackedActors()), Inline: true},
			{Name: "Components", Value: healthValue},
		},
	})
}
