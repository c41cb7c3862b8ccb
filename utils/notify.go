package utils

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"
)

// EmbedNotifier delivers expiry warnings and expired notices as embeds.
// Delivery goes to the grant's warn channel when one is configured;
// otherwise, or when the channel send fails, it falls back to a DM.
type EmbedNotifier struct {
	Session *discordgo.Session
}

func (n *EmbedNotifier) SendWarning(guildID, userID, roleID string, minutesRemaining int, channelID string) {
	embed := &discordgo.MessageEmbed{
		Title: "Timed Role Expiring Soon",
		Color: 15105570, // Orange
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Role", Value: fmt.Sprintf("<@&%s>", roleID), Inline: true},
			{Name: "Time Remaining", Value: fmt.Sprintf("%d minute(s)", minutesRemaining), Inline: true},
		},
	}
	n.deliver(userID, channelID, fmt.Sprintf("<@%s>", userID), embed)
}

func (n *EmbedNotifier) SendExpired(guildID, userID, roleID string, channelID string) {
	embed := &discordgo.MessageEmbed{
		Title: "Timed Role Expired",
		Color: 15158332, // Red
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Role", Value: fmt.Sprintf("<@&%s>", roleID), Inline: true},
		},
	}
	n.deliver(userID, channelID, fmt.Sprintf("<@%s>", userID), embed)
}

func (n *EmbedNotifier) deliver(userID, channelID, content string, embed *discordgo.MessageEmbed) {
	if channelID != "" {
		_, err := n.Session.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
			Content: content,
			Embed:   embed,
		})
		if err == nil {
			return
		}
		log.Printf("Failed to send notice to channel %s, falling back to DM: %v", channelID, err)
	}
	if err := SendPrivateEmbedMessage(n.Session, userID, embed); err != nil {
		log.Printf("Failed to DM notice to user %s: %v", userID, err)
	}
}
