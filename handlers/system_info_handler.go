package handlers

import (
	"fmt"
	"log"
	"runtime"
	"time"
	"timer-bot/bot"
	"timer-bot/utils"
	"timer-bot/utils/database"

	"github.com/bwmarrin/discordgo"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// HandleTimerStatus covers /timer-status: engine counters plus host health.
func HandleTimerStatus(s *discordgo.Session, i *discordgo.InteractionCreate, b *bot.Bot) {
	cpuCount, _ := cpu.Counts(true)
	cpuPercent, _ := cpu.Percent(0, false)
	vm, _ := mem.VirtualMemory()
	hostInfo, _ := host.Info()

	totalGrants, pausedGrants, err := database.CountGrants(b.DB)
	if err != nil {
		log.Printf("Failed to count grants: %v", err)
	}
	streakCount, err := database.CountStreaks(b.DB)
	if err != nil {
		log.Printf("Failed to count streaks: %v", err)
	}

	cpuUsage := "n/a"
	if len(cpuPercent) > 0 {
		cpuUsage = fmt.Sprintf("%.1f%%", cpuPercent[0])
	}

	embed := &discordgo.MessageEmbed{
		Title: "Timer Engine Status",
		Color: 0x5865F2, // Discord Blurple
		Fields: []*discordgo.MessageEmbedField{
			{Name: "⏲️ Active Countdowns", Value: fmt.Sprintf("%d", totalGrants-pausedGrants), Inline: true},
			{Name: "⏸️ Paused Countdowns", Value: fmt.Sprintf("%d", pausedGrants), Inline: true},
			{Name: "🔥 Tracked Streaks", Value: fmt.Sprintf("%d", streakCount), Inline: true},
			{Name: "🔁 Tick Interval", Value: b.GetConfig().TickInterval.String(), Inline: true},
			{Name: "🌍 Guilds", Value: fmt.Sprintf("%d", len(s.State.Guilds)), Inline: true},
			{Name: "⏱️ WebSocket Latency", Value: s.HeartbeatLatency().String(), Inline: true},
			{Name: "💻 OS", Value: fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion), Inline: true},
			{Name: "🔼 CPU Count", Value: fmt.Sprintf("%d", cpuCount), Inline: true},
			{Name: "📈 CPU Usage", Value: cpuUsage, Inline: true},
			{Name: "🧠 Memory", Value: fmt.Sprintf("%.1f%% (%d MB / %d MB)", vm.UsedPercent, vm.Used/1024/1024, vm.Total/1024/1024), Inline: true},
			{Name: "🐹 Go Version", Value: runtime.Version(), Inline: true},
			{Name: "🚀 Goroutines", Value: fmt.Sprintf("%d", runtime.NumGoroutine()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{
			Text: fmt.Sprintf("Status at %s", time.Now().Format("15:04")),
		},
	}

	utils.SendEmbedResponse(s, i, embed)
}
