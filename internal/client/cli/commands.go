package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophrelief/internal/client/client"
	"github.com/dmitrijs2005/gophrelief/internal/client/models"
	"github.com/dmitrijs2005/gophrelief/internal/common"
)

const historyLimit = 20

// Create prompts for a draft and submits it.
func (a *App) Create(ctx context.Context) error {
	d, err := a.inputDraft()
	if err != nil {
		printlnFn("error:", err)
		return err
	}

	res, err := a.records.Create(ctx, d)
	if err != nil {
		switch {
		case errors.Is(err, common.ErrOperationInFlight):
			printlnFn("A record is already being created, wait for it to finish.")
		case errors.Is(err, common.ErrUserCancelled):
			printlnFn("Cancelled.")
		case errors.Is(err, client.ErrOutcomeUnknown):
			printlnFn("The node stopped answering before the record was confirmed; it may still be created. Run 'list' before creating it again.")
			printlnFn("error:", err)
		default:
			printlnFn("error:", err)
		}
		return err
	}

	printlnFn(fmt.Sprintf("Record %s created (tx %s)", res.RecordID, res.TxHash))
	a.printRecords(res.Records)
	return nil
}

func (a *App) inputDraft() (models.Draft, error) {
	var d models.Draft
	var err error

	if d.OrganizationName, err = GetSimpleText(a.reader, "Organization name", a.out); err != nil {
		return d, err
	}
	if d.Location, err = GetSimpleText(a.reader, "Location", a.out); err != nil {
		return d, err
	}

	types := make([]string, 0, len(models.DisasterTypes))
	for _, t := range models.DisasterTypes {
		types = append(types, string(t))
	}
	s, err := GetSimpleText(a.reader, "Disaster type ("+strings.Join(types, ", ")+")", a.out)
	if err != nil {
		return d, err
	}
	if d.DisasterType, err = models.ParseDisasterType(s); err != nil {
		return d, err
	}

	if d.Victims, err = GetCount(a.reader, "Number of victims (kept encrypted)", a.out); err != nil {
		return d, err
	}
	if d.Supplies, err = GetCount(a.reader, "Number of supplies needed", a.out); err != nil {
		return d, err
	}
	return d, d.Validate()
}

func (a *App) List(ctx context.Context) error {
	records, err := a.records.Refresh(ctx)
	if err != nil {
		printlnFn("error:", err)
		return err
	}
	a.printRecords(records)
	return nil
}

func (a *App) Search(ctx context.Context, query string) error {
	if query == "" {
		q, err := GetSimpleText(a.reader, "Search for", a.out)
		if err != nil {
			return err
		}
		query = q
	}

	records, err := a.records.Search(ctx, query)
	if err != nil {
		printlnFn("error:", err)
		return err
	}
	a.printRecords(records)
	return nil
}

func (a *App) printRecords(records []models.Record) {
	if len(records) == 0 {
		printlnFn("No records.")
		return
	}
	for _, r := range records {
		printlnFn(r.String())
	}
}

func (a *App) Show(ctx context.Context, id string) error {
	r, err := a.records.Get(ctx, id)
	if err != nil {
		printlnFn("error:", err)
		return err
	}

	victims := "encrypted (use 'decrypt " + r.ID + "')"
	if v, ok := r.VictimCount(); ok {
		victims = fmt.Sprintf("%d, verified on the ledger", v)
	}

	printlnFn(fmt.Sprintf("ID:           %s", r.ID))
	printlnFn(fmt.Sprintf("Organization: %s", r.OrganizationName))
	printlnFn(fmt.Sprintf("Location:     %s", r.Location))
	printlnFn(fmt.Sprintf("Supplies:     %d", r.PublicSupplyCount))
	printlnFn(fmt.Sprintf("Victims:      %s", victims))
	printlnFn(fmt.Sprintf("Created:      %s by %s", r.CreatedAt.Format(time.RFC3339), r.Creator.Hex()))
	printlnFn(fmt.Sprintf("Handle:       %s", r.Handle.Hex()))
	return nil
}

// Decrypt requests decryption of a record and reports the outcome with its
// trust level.
func (a *App) Decrypt(ctx context.Context, id string) error {
	out := a.records.RequestDecryption(ctx, id)

	switch o := out.(type) {
	case models.OnChainVerified:
		printlnFn(fmt.Sprintf("Verified on the ledger: %d victims", o.Value))
	case models.AlreadyVerified:
		printlnFn(fmt.Sprintf("Already verified: %d victims", o.Value))
	case models.LocallyDecryptedUnverified:
		printlnFn(fmt.Sprintf("Decrypted locally: %d victims. The ledger has not confirmed it yet; run 'show %s' later.", o.Value, id))
	case models.Failed:
		printlnFn("Decryption failed:", o.Reason)
		return o.Err
	}
	return nil
}

func (a *App) Check(ctx context.Context) error {
	if a.records.CheckAvailability(ctx) {
		a.setMode(ModeOnline)
		printlnFn("Node is available.")
		return nil
	}
	a.setMode(ModeOffline)
	printlnFn("Node is unavailable.")
	return nil
}

func (a *App) Stats(ctx context.Context) error {
	s, err := a.records.Stats(ctx)
	if err != nil {
		printlnFn("error:", err)
		return err
	}
	printlnFn(fmt.Sprintf("Records: %d, verified: %d, pending: %d", s.Total, s.Verified, s.Pending))
	return nil
}

func (a *App) History(ctx context.Context, id string) error {
	events, err := a.records.History(ctx, id, historyLimit)
	if err != nil {
		printlnFn("error:", err)
		return err
	}
	if len(events) == 0 {
		printlnFn("No operations.")
		return nil
	}
	for _, e := range events {
		printlnFn(formatStatus(e))
	}
	return nil
}

func formatStatus(s models.TxStatus) string {
	var b strings.Builder
	if !s.At.IsZero() {
		b.WriteString(s.At.Format("15:04:05") + " ")
	}
	fmt.Fprintf(&b, "[%s]", s.Phase)
	if s.RecordID != "" {
		b.WriteString(" " + s.RecordID)
	}
	b.WriteString(" " + s.Message)
	if s.TxHash != "" {
		b.WriteString(" (tx " + s.TxHash + ")")
	}
	return b.String()
}
