package store

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	doc_id                   TEXT PRIMARY KEY,
	index_id                 TEXT NOT NULL DEFAULT '',
	document_name            TEXT NOT NULL DEFAULT '',
	file_ref                 TEXT NOT NULL DEFAULT '',
	doc_source               TEXT NOT NULL DEFAULT '',
	raw_text                 TEXT NOT NULL DEFAULT '',
	table_text               TEXT NOT NULL DEFAULT '',
	key_values_text          TEXT NOT NULL DEFAULT '',
	translated_text          TEXT NOT NULL DEFAULT '',
	doc_language             TEXT NOT NULL DEFAULT '',
	classification           TEXT NOT NULL DEFAULT '',
	extracted_entities       TEXT NOT NULL DEFAULT '',
	total_keys               INTEGER NOT NULL DEFAULT 0,
	empty_keys_count         INTEGER NOT NULL DEFAULT 0,
	empty_keys               TEXT NOT NULL DEFAULT '[]',
	empty_key_perc           TEXT NOT NULL DEFAULT '',
	document_conf_score      TEXT NOT NULL DEFAULT '',
	gw_claim_id              TEXT NOT NULL DEFAULT '',
	mark_for_review          TEXT NOT NULL DEFAULT 'No',
	extraction_status        TEXT NOT NULL DEFAULT '',
	classification_status    TEXT NOT NULL DEFAULT '',
	entity_extraction_status TEXT NOT NULL DEFAULT '',
	confidence_score_status  TEXT NOT NULL DEFAULT '',
	doc_status               TEXT NOT NULL DEFAULT '',
	failure_reason           TEXT NOT NULL DEFAULT '',
	created_at               TEXT NOT NULL,
	updated_at               TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(doc_status);
CREATE INDEX IF NOT EXISTS idx_documents_updated ON documents(updated_at);
`
