package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/lead-engine/internal/model"
	"github.com/sells-group/lead-engine/internal/store"
)

var (
	contactsFile   string
	contactsEvent  string
	contactsStatus string
	contactsLimit  int
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage badge-scan contacts",
}

var contactsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import contacts from a JSON or CSV file",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		contacts, err := readContactsFile(contactsFile, contactsEvent)
		if err != nil {
			return err
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		inserted, err := st.ImportContacts(ctx, contacts)
		if err != nil {
			return eris.Wrap(err, "import contacts")
		}

		zap.L().Info("import complete",
			zap.String("file", contactsFile),
			zap.Int("read", len(contacts)),
			zap.Int("inserted", inserted),
			zap.Int("skipped", len(contacts)-inserted),
		)
		return nil
	},
}

var contactsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List contacts and their enrichment status",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		filter := store.ContactFilter{EventID: contactsEvent, Limit: contactsLimit}
		if contactsStatus != "" {
			filter.Statuses = []model.EnrichmentStatus{model.EnrichmentStatus(strings.ToUpper(contactsStatus))}
		}
		contacts, err := st.ListContacts(ctx, filter)
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tEVENT\tCONTACT\tSTATUS")
		for _, c := range contacts {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.EventID, c.Label(), c.Status)
		}
		return w.Flush()
	},
}

func init() {
	contactsImportCmd.Flags().StringVar(&contactsFile, "file", "", "path to a .json or .csv file (required)")
	contactsImportCmd.Flags().StringVar(&contactsEvent, "event", "", "event id applied to rows without one")
	_ = contactsImportCmd.MarkFlagRequired("file")

	contactsListCmd.Flags().StringVar(&contactsEvent, "event", "", "filter by event id")
	contactsListCmd.Flags().StringVar(&contactsStatus, "status", "", "filter by status (pending, completed, failed)")
	contactsListCmd.Flags().IntVar(&contactsLimit, "limit", 0, "max contacts to list (0 = all)")

	contactsCmd.AddCommand(contactsImportCmd, contactsListCmd)
	rootCmd.AddCommand(contactsCmd)
}

// readContactsFile parses a JSON array of contacts or a CSV file with a
// header row. Rows without an event id get defaultEvent.
func readContactsFile(path, defaultEvent string) ([]model.Contact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	defer f.Close() //nolint:errcheck

	var contacts []model.Contact
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		if err := json.NewDecoder(f).Decode(&contacts); err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
	case ".csv":
		contacts, err = parseContactsCSV(f)
		if err != nil {
			return nil, eris.Wrapf(err, "parse %s", path)
		}
	default:
		return nil, eris.Errorf("unsupported contacts file type %q (want .json or .csv)", filepath.Ext(path))
	}

	for i := range contacts {
		if contacts[i].EventID == "" {
			contacts[i].EventID = defaultEvent
		}
		contacts[i].Status = ""
		contacts[i].StatusReason = ""
	}
	return contacts, nil
}

// csvColumns maps accepted header names to contact fields.
var csvColumns = map[string]func(*model.Contact, string){
	"id":       func(c *model.Contact, v string) { c.ID = v },
	"event_id": func(c *model.Contact, v string) { c.EventID = v },
	"name":     func(c *model.Contact, v string) { c.Name = v },
	"email":    func(c *model.Contact, v string) { c.Email = v },
	"company":  func(c *model.Contact, v string) { c.Company = v },
	"title":    func(c *model.Contact, v string) { c.Title = v },
	"phone":    func(c *model.Contact, v string) { c.Phone = v },
}

func parseContactsCSV(r io.Reader) ([]model.Contact, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, eris.Wrap(err, "read header")
	}
	setters := make([]func(*model.Contact, string), len(header))
	known := 0
	for i, h := range header {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(h)), " ", "_")
		if key == "eventid" {
			key = "event_id"
		}
		if set, ok := csvColumns[key]; ok {
			setters[i] = set
			known++
		}
	}
	if known == 0 {
		return nil, eris.New("no recognized columns in header")
	}

	var out []model.Contact
	for {
		rec, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "read row %d", len(out)+2)
		}
		var c model.Contact
		for i, v := range rec {
			if i < len(setters) && setters[i] != nil {
				setters[i](&c, strings.TrimSpace(v))
			}
		}
		if c.Name == "" && c.Company == "" {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}
