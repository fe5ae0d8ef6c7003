package store

import "errors"

// Sentinel errors returned by repository methods to signal well-known failure
// conditions. Callers should use [errors.Is] to match against these values.
var (
	// ErrConnectionNotFound is returned when no connection registration
	// exists for the requested identity.
	ErrConnectionNotFound = errors.New("connection registration not found")

	// ErrCircleNotFound is returned when a circle definition lookup by id
	// produces no row.
	ErrCircleNotFound = errors.New("circle definition not found")

	// ErrCircleAlreadyExists is returned when creating a circle whose id is
	// already taken.
	ErrCircleAlreadyExists = errors.New("circle definition already exists")

	// ErrAppNotFound is returned when an app registration lookup by id
	// produces no row.
	ErrAppNotFound = errors.New("app registration not found")

	// ErrDriveNotFound is returned when a drive lookup by internal id or
	// (alias, type) pair produces no row.
	ErrDriveNotFound = errors.New("drive not found")

	// ErrFileNotFound is returned when a file header lookup produces no row.
	ErrFileNotFound = errors.New("file header not found")

	// ErrPayloadNotFound is returned when a payload part lookup by key
	// produces no row.
	ErrPayloadNotFound = errors.New("payload not found")

	// ErrThumbnailNotFound is returned when a thumbnail rendition lookup
	// produces no row.
	ErrThumbnailNotFound = errors.New("thumbnail not found")

	// ErrOutboxItemNotFound is returned when a marker-addressed outbox
	// operation matches no claimed item, typically because the claim was
	// already recovered by the dead-claim pass.
	ErrOutboxItemNotFound = errors.New("outbox item not found")
)

// Low-level database operation errors. These are returned (or wrapped) by
// repository methods when a SQL-level operation fails before any domain logic
// can be applied.
var (
	// ErrBuildingSQLQuery is returned when constructing a parameterised SQL
	// query fails (e.g. invalid argument count or unsupported type).
	ErrBuildingSQLQuery = errors.New("error building sql query")

	// ErrExecutingQuery is returned when executing a SELECT or similar
	// read-only query against the database fails.
	ErrExecutingQuery = errors.New("error executing sql query")

	// ErrBeginningTransaction is returned when the database driver cannot
	// start a new transaction.
	ErrBeginningTransaction = errors.New("failed to begin transaction")

	// ErrCommitingTransaction is returned when committing an open transaction
	// fails. The transaction is considered rolled back at this point.
	ErrCommitingTransaction = errors.New("failed to commit transaction")

	// ErrExecutingStatement is returned when executing a DML statement
	// (INSERT, UPDATE, DELETE) fails.
	ErrExecutingStatement = errors.New("failed to executing statement")

	// ErrScanningRow is returned when scanning column values from a single
	// result row into a destination struct fails.
	ErrScanningRow = errors.New("failed to scan row")

	// ErrScanningRows is returned when scanning column values during
	// multi-row iteration fails, typically mid-result-set.
	ErrScanningRows = errors.New("failed to scan rows")

	// ErrMarshalingRecord is returned when a JSON payload column cannot be
	// produced from or parsed into its model type.
	ErrMarshalingRecord = errors.New("failed to marshal record")
)
