package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"voxchat/models"
	"voxchat/pipeline"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

var (
	app       *tview.Application
	pages     *tview.Pages
	textView  *tview.TextView
	fileInput *tview.InputField
	position  *tview.TextView
	helpView  *tview.TextView
	flex      *tview.Flex
	helpText  = `
[yellow]F1[white]: start/stop recording
[yellow]F2[white]: submit the audio file typed in the input field
[yellow]F3[white]: toggle voice output
[yellow]F4[white]: stop playback
[yellow]F5[white]: new conversation
[yellow]F6[white]: export log
[yellow]F7[white]: stored conversations (load, delete)
[yellow]F8[white]: replay the last recording
[yellow]F12[white]: show this help
[yellow]Ctrl+c[white]: quit

%s

Press Enter to go back
`
)

func notify(msg string) {
	modal := tview.NewModal().
		SetText(msg).
		AddButtons([]string{"ok"}).
		SetDoneFunc(func(int, string) {
			pages.RemovePage("notification")
		})
	pages.AddPage("notification", modal, true, true)
}

func buildTUI() {
	theme := tview.Theme{
		PrimitiveBackgroundColor:    tcell.ColorDefault,
		ContrastBackgroundColor:     tcell.ColorGray,
		MoreContrastBackgroundColor: tcell.ColorNavy,
		BorderColor:                 tcell.ColorGray,
		TitleColor:                  tcell.ColorRed,
		GraphicsColor:               tcell.ColorBlue,
		PrimaryTextColor:            tcell.ColorOlive,
		SecondaryTextColor:          tcell.ColorYellow,
		TertiaryTextColor:           tcell.ColorOrange,
		InverseTextColor:            tcell.ColorPurple,
		ContrastSecondaryTextColor:  tcell.ColorLime,
	}
	tview.Styles = theme
	app = tview.NewApplication()
	pages = tview.NewPages()
	textView = tview.NewTextView().
		SetDynamicColors(true).
		SetRegions(true)
	textView.SetBorder(true).SetTitle("chat")
	fileInput = tview.NewInputField().
		SetLabel("audio file: ").
		SetPlaceholder("path to a recording, F2 to send")
	fileInput.SetBorder(true)
	position = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	flex = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(textView, 0, 40, false).
		AddItem(fileInput, 3, 0, true).
		AddItem(position, 2, 0, false)
	helpView = tview.NewTextView().SetDynamicColors(true).SetDoneFunc(func(key tcell.Key) {
		pages.RemovePage("helpView")
	})
	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyF1:
			toggleRecording()
			return nil
		case tcell.KeyF2:
			path := strings.TrimSpace(fileInput.GetText())
			if path == "" {
				notify("type the path of an audio file first")
				return nil
			}
			fileInput.SetText("")
			go func() {
				if err := ctrl.SubmitFile(ctx, path); err != nil {
					logger.Warn("failed to submit file", "error", err, "path", path)
					app.QueueUpdateDraw(func() { notify(err.Error()) })
				}
			}()
			return nil
		case tcell.KeyF3:
			ctrl.SetVoiceOutput(!ctrl.Store().VoiceOutput())
			return nil
		case tcell.KeyF4:
			ctrl.StopPlayback()
			return nil
		case tcell.KeyF5:
			if err := newConversation(ctrl, sess); err != nil {
				notify(err.Error())
			}
			return nil
		case tcell.KeyF6:
			where, err := exportLog()
			if err != nil {
				logger.Error("failed to export log", "error", err)
				notify(err.Error())
				return nil
			}
			notify(fmt.Sprintf("log exported to %s", where))
			return nil
		case tcell.KeyF7:
			showConversations()
			return nil
		case tcell.KeyF8:
			if err := ctrl.PlayLast(); err != nil {
				logger.Warn("failed to replay recording", "error", err)
				notify(err.Error())
			}
			return nil
		case tcell.KeyF12:
			helpView.SetText(fmt.Sprintf(helpText, makeStatusLine(ctrl.Store().Snapshot(), 0)))
			pages.AddPage("helpView", helpView, true, true)
			return nil
		}
		return event
	})
	pages.AddPage("main", flex, true, true)
}

func render(snap pipeline.Snapshot, frame int) {
	textView.SetText(chatToText(snap.Entries))
	textView.ScrollToEnd()
	position.SetText(makeStatusLine(snap, frame))
}

// watchStore re-renders on every snapshot and animates the spinner while a
// remote call is in flight. queue hands a paint over to the UI goroutine.
func watchStore(ctx context.Context, store *pipeline.Store, queue func(func()), paint func(pipeline.Snapshot, int)) {
	snaps, unsubscribe := store.Subscribe()
	defer unsubscribe()
	ticker := time.NewTicker(120 * time.Millisecond)
	defer ticker.Stop()
	var last pipeline.Snapshot
	frame := 0
	for {
		select {
		case <-ctx.Done():
			return
		case snap := <-snaps:
			last = snap
			f := frame
			queue(func() { paint(snap, f) })
		case <-ticker.C:
			if last.State.Loading() || last.State == models.StateRecording {
				frame++
				snap, f := last, frame
				queue(func() { paint(snap, f) })
			}
		}
	}
}

func runTUI() error {
	buildTUI()
	render(ctrl.Store().Snapshot(), 0)
	queue := func(f func()) { app.QueueUpdateDraw(f) }
	go watchStore(ctx, ctrl.Store(), queue, render)
	return app.SetRoot(pages, true).EnableMouse(true).EnablePaste(true).Run()
}
