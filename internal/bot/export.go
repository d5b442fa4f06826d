package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/citycycle/citycycle-bot/internal/models"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/xuri/excelize/v2"
)

const rentalsSheet = "Rentals"

// showUserRentals sends the user's rental history as an xlsx document.
func (b *Bot) showUserRentals(ctx context.Context, msg *tgbotapi.Message) error {
	rentals, err := b.db.UserRentals(ctx, msg.From.ID)
	if err != nil {
		return err
	}
	if len(rentals) == 0 {
		return b.reply(msg, "📭 You have no rentals yet")
	}

	path, err := buildRentalsFile(rentals, msg.From.ID)
	if err != nil {
		return err
	}
	defer os.Remove(path)

	doc := tgbotapi.NewDocument(msg.Chat.ID, tgbotapi.FilePath(path))
	doc.Caption = fmt.Sprintf("📖 Your rentals (%d)", len(rentals))
	_, err = b.sender.Send(doc)
	return err
}

func buildRentalsFile(rentals []models.Rental, userID int64) (string, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(rentalsSheet)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %v", err)
	}
	f.SetActiveSheet(index)

	headers := []string{"ID", "Bike", "Type", "From", "To", "Started", "Finished", "Duration"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(rentalsSheet, cell, header)
	}
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err == nil {
		f.SetCellStyle(rentalsSheet, "A1", "H1", style)
	}

	for i, rental := range rentals {
		row := i + 2
		f.SetCellValue(rentalsSheet, fmt.Sprintf("A%d", row), rental.ID)
		f.SetCellValue(rentalsSheet, fmt.Sprintf("B%d", row), rental.BikeID)
		if rental.Bike.Type.Name != "" {
			f.SetCellValue(rentalsSheet, fmt.Sprintf("C%d", row), rental.Bike.Type.Name)
		}
		f.SetCellValue(rentalsSheet, fmt.Sprintf("D%d", row), rental.StartStation.Name)
		if rental.EndStation != nil {
			f.SetCellValue(rentalsSheet, fmt.Sprintf("E%d", row), rental.EndStation.Name)
		}
		f.SetCellValue(rentalsSheet, fmt.Sprintf("F%d", row), rental.StartTime.Format("02.01.2006 15:04"))
		if rental.EndTime != nil {
			f.SetCellValue(rentalsSheet, fmt.Sprintf("G%d", row), rental.EndTime.Format("02.01.2006 15:04"))
			f.SetCellValue(rentalsSheet, fmt.Sprintf("H%d", row), rental.EndTime.Sub(rental.StartTime).Round(time.Minute).String())
		} else {
			f.SetCellValue(rentalsSheet, fmt.Sprintf("G%d", row), "in progress")
		}
	}

	f.SetColWidth(rentalsSheet, "A", "B", 8)
	f.SetColWidth(rentalsSheet, "C", "E", 18)
	f.SetColWidth(rentalsSheet, "F", "H", 18)

	f.DeleteSheet("Sheet1")

	path := filepath.Join(os.TempDir(), fmt.Sprintf("rentals_%d_%s.xlsx", userID, time.Now().Format("2006-01-02_15-04-05")))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("error saving file: %v", err)
	}

	log.Printf("rentals export created: %s", path)
	return path, nil
}
