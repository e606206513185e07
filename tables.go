package main

import (
	"fmt"

	"voxchat/models"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

const historyPage = "historyPage"

func makeConversationTable(convs []models.Conversation) *tview.Table {
	actions := []string{"load", "delete"}
	rows, cols := len(convs), len(actions)+2
	convTable := tview.NewTable().
		SetBorders(true)
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			var text string
			switch c {
			case 0:
				text = convs[r].Name
			case 1:
				text = convs[r].UpdatedAt.Local().Format("2006-01-02 15:04")
			default:
				text = actions[c-2]
			}
			convTable.SetCell(r, c,
				tview.NewTableCell(text).
					SetTextColor(tcell.ColorWhite).
					SetAlign(tview.AlignCenter))
		}
	}
	convTable.Select(0, 0).SetFixed(1, 1).SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEsc || key == tcell.KeyF7 {
			pages.RemovePage(historyPage)
			return
		}
		if key == tcell.KeyEnter {
			convTable.SetSelectable(true, true)
		}
	}).SetSelectedFunc(func(row int, column int) {
		tc := convTable.GetCell(row, column)
		tc.SetTextColor(tcell.ColorRed)
		convTable.SetSelectable(false, false)
		selected := convs[row]
		defer pages.RemovePage(historyPage)
		switch tc.Text {
		case "load":
			if _, err := openConversation(ctrl, sess, selected.ID); err != nil {
				logger.Error("failed to load conversation", "id", selected.ID, "error", err)
				notify(err.Error())
			}
		case "delete":
			if err := removeConversation(ctrl, sess, selected.ID); err != nil {
				logger.Error("failed to remove conversation", "id", selected.ID, "error", err)
				notify(err.Error())
				return
			}
			notify(fmt.Sprintf("%s was deleted", selected.Name))
		}
	})
	return convTable
}

func showConversations() {
	convs, err := sess.conversations()
	if err != nil {
		logger.Error("failed to list conversations", "error", err)
		notify(err.Error())
		return
	}
	if len(convs) == 0 {
		notify("no stored conversations yet")
		return
	}
	pages.AddPage(historyPage, makeConversationTable(convs), true, true)
}
