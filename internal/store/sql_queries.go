package store

const (
	upsertConnection = `INSERT INTO connections (identity, status, created, last_updated, access_grant, token_id, token_half_key, token_shared_secret, original_contact)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (identity) DO UPDATE SET
		status = EXCLUDED.status,
		last_updated = EXCLUDED.last_updated,
		access_grant = EXCLUDED.access_grant,
		token_id = EXCLUDED.token_id,
		token_half_key = EXCLUDED.token_half_key,
		token_shared_secret = EXCLUDED.token_shared_secret,
		original_contact = EXCLUDED.original_contact;`

	getConnection = `SELECT identity, status, created, last_updated, access_grant, token_id, token_half_key, token_shared_secret, original_contact
	FROM connections
	WHERE identity = $1;`

	deleteConnection = `DELETE FROM connections WHERE identity = $1;`

	deleteCircleMemberRows = `DELETE FROM circle_members WHERE identity = $1;`
	insertCircleMemberRow  = `INSERT INTO circle_members (circle_id, identity, data) VALUES ($1, $2, $3);`
	getCircleMemberRows    = `SELECT circle_id, data FROM circle_members WHERE identity = $1;`
	getCircleMembers       = `SELECT identity FROM circle_members WHERE circle_id = $1 ORDER BY identity;`

	deleteAppGrantRows = `DELETE FROM app_grants WHERE identity = $1;`
	insertAppGrantRow  = `INSERT INTO app_grants (identity, app_id, circle_id, data) VALUES ($1, $2, $3, $4);`
	getAppGrantRows    = `SELECT app_id, circle_id, data FROM app_grants WHERE identity = $1;`

	reconcileCircleMembers = `DELETE FROM circle_members cm
	WHERE NOT EXISTS (
		SELECT 1 FROM connections c
		WHERE c.identity = cm.identity AND c.access_grant IS NOT NULL
	);`
	reconcileAppGrants = `DELETE FROM app_grants ag
	WHERE NOT EXISTS (
		SELECT 1 FROM connections c
		WHERE c.identity = ag.identity AND c.access_grant IS NOT NULL
	);`

	createCircle = `INSERT INTO circles (id, disabled, last_updated, data) VALUES ($1, $2, $3, $4);`
	updateCircle = `UPDATE circles SET disabled = $2, last_updated = $3, data = $4 WHERE id = $1;`
	getCircle     = `SELECT data FROM circles WHERE id = $1;`
	getAllCircles = `SELECT data FROM circles ORDER BY last_updated DESC;`
	deleteCircle  = `DELETE FROM circles WHERE id = $1;`

	upsertApp = `INSERT INTO apps (app_id, created, data) VALUES ($1, $2, $3)
	ON CONFLICT (app_id) DO UPDATE SET data = EXCLUDED.data;`
	getApp     = `SELECT data FROM apps WHERE app_id = $1;`
	getAllApps = `SELECT data FROM apps ORDER BY created;`
	deleteApp  = `DELETE FROM apps WHERE app_id = $1;`

	upsertDrive = `INSERT INTO drives (id, alias, drive_type, name, allow_anonymous_reads, master_key_encrypted_storage_key, created)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (id) DO UPDATE SET
		name = EXCLUDED.name,
		allow_anonymous_reads = EXCLUDED.allow_anonymous_reads;`
	getDrive = `SELECT id, alias, drive_type, name, allow_anonymous_reads, master_key_encrypted_storage_key, created
	FROM drives
	WHERE id = $1;`
	getDriveByTarget = `SELECT id, alias, drive_type, name, allow_anonymous_reads, master_key_encrypted_storage_key, created
	FROM drives
	WHERE alias = $1 AND drive_type = $2;`
	getAllDrives = `SELECT id, alias, drive_type, name, allow_anonymous_reads, master_key_encrypted_storage_key, created
	FROM drives
	ORDER BY created;`
	getAnonymousReadDrives = `SELECT id, alias, drive_type, name, allow_anonymous_reads, master_key_encrypted_storage_key, created
	FROM drives
	WHERE allow_anonymous_reads = TRUE
	ORDER BY created;`

	saveFileHeader = `INSERT INTO files (drive_id, file_id, header)
	VALUES ($1, $2, $3)
	ON CONFLICT (drive_id, file_id) DO UPDATE SET header = EXCLUDED.header;`
	getFileHeader          = `SELECT header FROM files WHERE drive_id = $1 AND file_id = $2;`
	deleteFileHeader       = `DELETE FROM files WHERE drive_id = $1 AND file_id = $2;`
	deleteTransferHistory  = `DELETE FROM transfer_history WHERE drive_id = $1 AND file_id = $2;`

	savePayload = `INSERT INTO file_payloads (drive_id, file_id, payload_key, content_type, content)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (drive_id, file_id, payload_key) DO UPDATE SET
		content_type = EXCLUDED.content_type,
		content = EXCLUDED.content;`
	getPayload         = `SELECT content_type, content FROM file_payloads WHERE drive_id = $1 AND file_id = $2 AND payload_key = $3;`
	deleteFilePayloads = `DELETE FROM file_payloads WHERE drive_id = $1 AND file_id = $2;`

	saveThumbnail = `INSERT INTO file_thumbnails (drive_id, file_id, payload_key, pixel_width, pixel_height, content_type, content)
	VALUES ($1, $2, $3, $4, $5, $6, $7)
	ON CONFLICT (drive_id, file_id, payload_key, pixel_width, pixel_height) DO UPDATE SET
		content_type = EXCLUDED.content_type,
		content = EXCLUDED.content;`
	getThumbnail         = `SELECT content_type, content FROM file_thumbnails WHERE drive_id = $1 AND file_id = $2 AND payload_key = $3 AND pixel_width = $4 AND pixel_height = $5;`
	deleteFileThumbnails = `DELETE FROM file_thumbnails WHERE drive_id = $1 AND file_id = $2;`
	upsertTransferHistory  = `INSERT INTO transfer_history (drive_id, file_id, recipient, is_in_outbox, latest_status, latest_version)
	VALUES ($1, $2, $3, $4, $5, $6)
	ON CONFLICT (drive_id, file_id, recipient) DO UPDATE SET
		is_in_outbox = EXCLUDED.is_in_outbox,
		latest_status = EXCLUDED.latest_status,
		latest_version = EXCLUDED.latest_version;`
	getTransferHistory = `SELECT recipient, is_in_outbox, latest_status, latest_version
	FROM transfer_history
	WHERE drive_id = $1 AND file_id = $2
	ORDER BY recipient;`
	countOutstandingDeliveries = `SELECT COUNT(*)
	FROM transfer_history
	WHERE drive_id = $1 AND file_id = $2 AND is_in_outbox = TRUE;`

	addOutboxItem = `INSERT INTO outbox (drive_id, file_id, recipient, type, priority, attempt_count, next_run, encrypted_token, state, is_transient, created)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11);`

	// Per-item markers: each claimed row receives its own lease id, so
	// completion and failure can address exactly one item.
	claimOutboxBatch = `UPDATE outbox
	SET marker = gen_random_uuid(), checked_out_at = $1
	WHERE id IN (
		SELECT id FROM outbox
		WHERE drive_id = $2 AND marker IS NULL AND next_run <= $1
		ORDER BY priority, id
		LIMIT $3
		FOR UPDATE SKIP LOCKED
	)
	RETURNING drive_id, file_id, recipient, type, priority, attempt_count, next_run, marker, encrypted_token, state, is_transient, created;`

	completeOutboxItem = `DELETE FROM outbox WHERE marker = $1;`

	failOutboxItem = `UPDATE outbox
	SET marker = NULL, checked_out_at = NULL, attempt_count = attempt_count + 1, next_run = $2
	WHERE marker = $1;`

	recoverDeadOutboxItems = `UPDATE outbox
	SET marker = NULL, checked_out_at = NULL, attempt_count = attempt_count + 1
	WHERE marker IS NOT NULL AND checked_out_at < $1;`

	outboxStatus = `SELECT COUNT(*),
		COUNT(marker),
		COALESCE(MIN(next_run) FILTER (WHERE marker IS NULL), 0)
	FROM outbox
	WHERE drive_id = $1;`

	outboxNextRun = `SELECT COALESCE(MIN(next_run), 0) FROM outbox WHERE marker IS NULL;`

	outboxDrivesWithWork = `SELECT DISTINCT drive_id FROM outbox WHERE marker IS NULL AND next_run <= $1;`

	upsertEscrowItem = `INSERT INTO key_escrow (id, drive_id, file_id, recipient, item_type, options, attempts, first_added, last_attempt)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (drive_id, file_id, recipient) DO UPDATE SET
		item_type = EXCLUDED.item_type,
		options = EXCLUDED.options,
		attempts = EXCLUDED.attempts,
		last_attempt = EXCLUDED.last_attempt;`
	getEscrowByRecipient = `SELECT id, drive_id, file_id, recipient, item_type, options, attempts, first_added, last_attempt
	FROM key_escrow
	WHERE recipient = $1
	ORDER BY first_added;`
	listEscrowRecipients = `SELECT DISTINCT recipient FROM key_escrow ORDER BY recipient;`

	deleteEscrowItem = `DELETE FROM key_escrow WHERE id = $1;`
)
