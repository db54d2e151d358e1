package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/bxservice/hibiscus-recon/internal/config"
	"github.com/bxservice/hibiscus-recon/internal/model"
)

// Error codes reported by LoadError.
const (
	CodeInit = "ErrorInitializingParser"
	CodeLoad = "LoadError"
)

// statementNameFormat renders the load timestamp used as statement name.
const statementNameFormat = "2006-01-02 15:04:05.000"

var (
	// ErrBankAccountNotFound means account and routing number did not
	// resolve to exactly one bank account.
	ErrBankAccountNotFound = errors.New("bank account not found")
	// ErrDuplicateLine means the external transaction id was loaded before.
	ErrDuplicateLine = errors.New("line already loaded")
	// ErrChecksumMismatch means the recomputed checksum differs from the declared one.
	ErrChecksumMismatch = errors.New("checksum mismatch")
)

// LoadError aborts loading a file. Description names the failing line.
type LoadError struct {
	Code        string
	Description string
	Row         int
	Err         error
}

func (e *LoadError) Error() string {
	return e.Code + ": " + e.Description
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

func loadError(row int, err error, format string, args ...any) *LoadError {
	return &LoadError{
		Code:        CodeLoad,
		Description: fmt.Sprintf("Line %d -> ", row) + fmt.Sprintf(format, args...),
		Row:         row,
		Err:         err,
	}
}

// Store is what the Loader needs from the record store.
type Store interface {
	FindBankAccounts(ctx context.Context, accountNo, routingNo string) ([]model.BankAccount, error)
	SaveStagingRecord(ctx context.Context, rec *model.StagingRecord) error
	CountStagingByLine(ctx context.Context, line, bankAccountID, excludeID int64) (int, error)
	PostedStatementName(ctx context.Context, line, bankAccountID int64) (string, bool, error)
}

// Result summarizes a loaded file.
type Result struct {
	StatementName string
	Staged        []model.StagingRecord
	// Warnings holds checksum mismatches that did not abort the load.
	Warnings []string
}

// Loader stages the rows of Hibiscus exports.
type Loader struct {
	store Store
	cfg   config.HibiscusConfig
	log   zerolog.Logger
	now   func() time.Time
}

// NewLoader creates a Loader.
func NewLoader(st Store, cfg config.HibiscusConfig, log zerolog.Logger) *Loader {
	return &Loader{store: st, cfg: cfg, log: log, now: time.Now}
}

// LoadFile stages every row of the file at path.
func (l *Loader) LoadFile(ctx context.Context, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &LoadError{Code: CodeInit, Description: err.Error(), Err: err}
	}
	defer f.Close()
	return l.Load(ctx, f, path)
}

// Load stages every row read from r. fileName supplies the statement
// reference. The first failing row stops the load; rows staged before it
// stay staged.
func (l *Loader) Load(ctx context.Context, r io.Reader, fileName string) (*Result, error) {
	if l.store == nil {
		return nil, &LoadError{Code: CodeInit, Description: "store is a nil reference"}
	}

	var delim rune
	if l.cfg.Delimiter != "" {
		delim = []rune(l.cfg.Delimiter)[0]
	}
	reader := NewReader(r, fileName, delim)

	loadTS := l.now()
	res := &Result{StatementName: loadTS.Format(statementNameFormat)}
	log := l.log.With().Str("file", fileName).Logger()

	for {
		row, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return res, loadError(reader.Line(), err, "%v", err)
		}

		rec, err := l.stage(ctx, row, res.StatementName, loadTS)
		if err != nil {
			return res, err
		}
		res.Staged = append(res.Staged, *rec)

		if warning, err := l.verifyChecksum(row); err != nil {
			return res, err
		} else if warning != "" {
			log.Warn().Int("row", row.Number).Str("line", row.Line.ExternalTrxID).Msg(warning)
			res.Warnings = append(res.Warnings, warning)
		}
	}

	log.Info().Int("staged", len(res.Staged)).Int("warnings", len(res.Warnings)).Msg("file loaded")
	return res, nil
}

// stage resolves the bank account, persists the row and rejects duplicates.
func (l *Loader) stage(ctx context.Context, row *Row, statementName string, loadTS time.Time) (*model.StagingRecord, error) {
	line := row.Line
	accounts, err := l.store.FindBankAccounts(ctx, line.BankAccountNo, line.RoutingNo)
	if err != nil {
		return nil, loadError(row.Number, err, "resolving bank account: %v", err)
	}
	if len(accounts) != 1 {
		return nil, loadError(row.Number, ErrBankAccountNotFound,
			"Bank Not Found Account=%s, Routing=%s", line.BankAccountNo, line.RoutingNo)
	}
	bankAccountID := accounts[0].ID

	rec := &model.StagingRecord{
		BankAccountID:   bankAccountID,
		LineNo:          row.UmsatzID,
		Trx:             line,
		LineDescription: row.Comment,
		EftTrxType:      row.GvCode,
		ReferenceNo:     row.MandateID,
		StatementName:   statementName,
		StatementDate:   loadTS,
		Description:     l.cfg.StatementDescription,
	}
	if err := l.store.SaveStagingRecord(ctx, rec); err != nil {
		return nil, loadError(row.Number, err, "saving line %d: %v", row.UmsatzID, err)
	}

	if !l.cfg.ValidateDupsTrxID {
		return rec, nil
	}
	n, err := l.store.CountStagingByLine(ctx, row.UmsatzID, bankAccountID, rec.ID)
	if err != nil {
		return nil, loadError(row.Number, err, "checking duplicates: %v", err)
	}
	if n > 0 {
		return nil, loadError(row.Number, ErrDuplicateLine,
			"The line %d was already loaded in the import table", row.UmsatzID)
	}
	name, found, err := l.store.PostedStatementName(ctx, row.UmsatzID, bankAccountID)
	if err != nil {
		return nil, loadError(row.Number, err, "checking duplicates: %v", err)
	}
	if found {
		return nil, loadError(row.Number, ErrDuplicateLine,
			"The line %d was already loaded in Bank Statement %s", row.UmsatzID, name)
	}
	return rec, nil
}

// verifyChecksum returns a warning for a mismatch, or an error when the
// checksum is forced. A row without a declared checksum counts as a mismatch.
func (l *Loader) verifyChecksum(row *Row) (string, error) {
	if !l.cfg.ValidateChecksum {
		return "", nil
	}
	calculated := Checksum(row.ChecksumInput())
	declared := row.Line.Checksum
	if declared != nil && *declared == calculated {
		return "", nil
	}

	expected := "none"
	if declared != nil {
		expected = fmt.Sprint(*declared)
	}
	msg := fmt.Sprintf("The checksum for line %d doesn't match, calculated=%d, expected=%s",
		row.UmsatzID, calculated, expected)
	if l.cfg.ForceChecksum {
		return "", loadError(row.Number, ErrChecksumMismatch, "%s", msg)
	}
	return msg, nil
}
