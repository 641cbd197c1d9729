package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/google/uuid"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"pokertracker/internal/core"
	"pokertracker/internal/log"
	"pokertracker/internal/sheets"
)

// Config selects the spreadsheet and the credentials used to reach it.
// Credentials are a service account key unless OAuthTokenFile is set, in
// which case they are an OAuth client secret and the token file holds the
// user grant written by "pokerctl sheets-auth".
type Config struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsFile string
	CredentialsJSON string
	OAuthTokenFile  string
}

// Mirror writes session rows to one sheet of a Google spreadsheet. Column A
// holds the session id and is used to locate existing rows.
type Mirror struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string
	logger        *log.Logger

	mu      sync.Mutex
	sheetID *int64
}

var _ sheets.SessionMirror = (*Mirror)(nil)

// New creates a mirror authenticated with a service account or a saved OAuth
// user token.
func New(ctx context.Context, cfg Config, logger *log.Logger) (*Mirror, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if cfg.SheetName == "" {
		cfg.SheetName = "Sessions"
	}
	if logger == nil {
		logger = log.Default()
	}

	credentials, err := loadCredentials(cfg)
	if err != nil {
		return nil, err
	}

	opts := []goption.ClientOption{
		goption.WithCredentialsJSON(credentials),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}
	authMode := "service_account"
	if cfg.OAuthTokenFile != "" {
		client, err := oauthClient(ctx, credentials, cfg.OAuthTokenFile)
		if err != nil {
			return nil, err
		}
		opts = []goption.ClientOption{goption.WithHTTPClient(client)}
		authMode = "oauth"
	}

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	logger = logger.WithComponent(log.ComponentSheets)
	logger.InfoContext(ctx, "Google Sheets mirror ready",
		"spreadsheet_id", cfg.SpreadsheetID,
		"sheet", cfg.SheetName,
		"auth", authMode)

	return &Mirror{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     cfg.SheetName,
		logger:        logger,
	}, nil
}

func loadCredentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.CredentialsJSON) != "":
		return []byte(cfg.CredentialsJSON), nil
	case cfg.CredentialsFile != "":
		data, err := os.ReadFile(cfg.CredentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_CREDENTIALS_JSON or GOOGLE_CREDENTIALS_FILE)")
	}
}

func (m *Mirror) Upsert(ctx context.Context, owner uuid.UUID, s core.Session) error {
	if err := s.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}

	ids, err := m.readIDs(ctx)
	if err != nil {
		return err
	}

	if len(ids) == 0 {
		if err := m.writeRow(ctx, 1, toValues(sheets.Header())); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		ids = []string{"ID"}
	}

	values := toValues(sheets.Row(owner, s))
	row := findRow(ids, s.ID.String())
	if row == 0 {
		row = len(ids) + 1
	}
	if err := m.writeRow(ctx, row, values); err != nil {
		return fmt.Errorf("write session %s: %w", s.ID, err)
	}

	m.logger.DebugContext(ctx, "Mirrored session",
		log.FieldSessionID, s.ID,
		log.FieldOwnerID, owner,
		"row", row)
	return nil
}

func (m *Mirror) Delete(ctx context.Context, sessionID uuid.UUID) error {
	if m.svc == nil {
		return errors.New("sheets service not initialized")
	}
	ids, err := m.readIDs(ctx)
	if err != nil {
		return err
	}
	row := findRow(ids, sessionID.String())
	if row == 0 {
		return nil
	}

	sheetID, err := m.resolveSheetID(ctx)
	if err != nil {
		return err
	}
	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(row - 1),
					EndIndex:   int64(row),
				},
			},
		}},
	}
	if _, err := m.svc.Spreadsheets.BatchUpdate(m.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row, m.sheetName, err)
	}
	m.logger.DebugContext(ctx, "Removed mirrored session", log.FieldSessionID, sessionID, "row", row)
	return nil
}

func (m *Mirror) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", m.sheetName)
	resp, err := m.svc.Spreadsheets.Values.Get(m.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return firstColumn(resp.Values), nil
}

func (m *Mirror) writeRow(ctx context.Context, row int, values []any) error {
	rng := rowRange(m.sheetName, row, len(values))
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := m.svc.Spreadsheets.Values.Update(m.spreadsheetID, rng, vr).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// resolveSheetID looks up the numeric id of the sheet tab once.
func (m *Mirror) resolveSheetID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sheetID != nil {
		return *m.sheetID, nil
	}
	ss, err := m.svc.Spreadsheets.Get(m.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == m.sheetName {
			id := sh.Properties.SheetId
			m.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found in spreadsheet", m.sheetName)
}
