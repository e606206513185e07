package main

import (
	"fmt"
	"strings"

	"voxchat/models"
	"voxchat/pipeline"
)

var spinnerFrames = []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}

func roleToIcon(role string) string {
	return "<" + role + ">: "
}

func chatToTextSlice(entries []models.Entry) []string {
	resp := make([]string, len(entries))
	userIcon := roleToIcon(cfg.UserRole)
	assistantIcon := roleToIcon(cfg.AssistantRole)
	for i, e := range entries {
		resp[i] = e.ToText(i, userIcon, assistantIcon)
	}
	return resp
}

func chatToText(entries []models.Entry) string {
	return strings.Join(chatToTextSlice(entries), "\n")
}

func stateColor(st models.State) string {
	switch st {
	case models.StateRecording:
		return "red"
	case models.StateFailed:
		return "orange"
	case models.StatePlayingBack:
		return "green"
	}
	if st.Loading() {
		return "yellow"
	}
	return "white"
}

func makeStatusLine(snap pipeline.Snapshot, frame int) string {
	state := snap.State.String()
	if snap.Loading {
		state = fmt.Sprintf("%s %s", spinnerFrames[frame%len(spinnerFrames)], state)
	}
	line := fmt.Sprintf("F12 to show keys help; state: [%s]%s[-]; voice: %v; chat: %s; model: %s; log level: %s",
		stateColor(snap.State), state, snap.VoiceOutput, sess.activeName(), cfg.ChatModel, GetLogLevel())
	if snap.LastError != "" {
		line += fmt.Sprintf("\n[orange]last error:[-] %s", snap.LastError)
	}
	return line
}
