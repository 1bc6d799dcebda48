package database

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    telegram_bot_token TEXT NOT NULL,
    telegram_chat_id INTEGER NOT NULL,
    gmail_refresh_token TEXT,
    gmail_email TEXT,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS email_requests (
    id TEXT PRIMARY KEY,
    user_id TEXT REFERENCES users(id),
    to_addresses TEXT NOT NULL,
    cc_addresses TEXT,
    bcc_addresses TEXT,
    subject TEXT NOT NULL,
    body TEXT NOT NULL,
    is_html BOOLEAN DEFAULT false,
    attachments TEXT,
    thread_id TEXT,
    in_reply_to TEXT,
    gmail_references TEXT,
    status TEXT NOT NULL DEFAULT 'pending',
    error_message TEXT,
    telegram_message_id INTEGER,
    telegram_chat_id INTEGER,
    created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
    resolved_at DATETIME
);

CREATE INDEX IF NOT EXISTS idx_requests_user ON email_requests(user_id);
CREATE INDEX IF NOT EXISTS idx_requests_status ON email_requests(status);
CREATE INDEX IF NOT EXISTS idx_requests_resolved ON email_requests(resolved_at);
`
