package database

// Schema is applied on every connect. Tables stay schemaless; the indexes
// back the lookups the repositories run and the telegram_id uniqueness.
const Schema = `
DEFINE TABLE IF NOT EXISTS user SCHEMALESS;
DEFINE INDEX IF NOT EXISTS user_telegram_id ON TABLE user COLUMNS telegram_id UNIQUE;

DEFINE TABLE IF NOT EXISTS city SCHEMALESS;
DEFINE INDEX IF NOT EXISTS city_name ON TABLE city COLUMNS name UNIQUE;

DEFINE TABLE IF NOT EXISTS location SCHEMALESS;
DEFINE INDEX IF NOT EXISTS location_city ON TABLE location COLUMNS city, district;

DEFINE TABLE IF NOT EXISTS question SCHEMALESS;
DEFINE INDEX IF NOT EXISTS question_location ON TABLE question COLUMNS location_id;

DEFINE TABLE IF NOT EXISTS quest SCHEMALESS;
DEFINE INDEX IF NOT EXISTS quest_city ON TABLE quest COLUMNS city, district;

DEFINE TABLE IF NOT EXISTS agreement SCHEMALESS;
DEFINE INDEX IF NOT EXISTS agreement_type ON TABLE agreement COLUMNS type UNIQUE;

DEFINE TABLE IF NOT EXISTS payment SCHEMALESS;
DEFINE INDEX IF NOT EXISTS payment_user ON TABLE payment COLUMNS user_id;

DEFINE TABLE IF NOT EXISTS participation SCHEMALESS;
DEFINE INDEX IF NOT EXISTS participation_user ON TABLE participation COLUMNS user_id;
DEFINE INDEX IF NOT EXISTS participation_quest ON TABLE participation COLUMNS quest_id;

DEFINE TABLE IF NOT EXISTS notification SCHEMALESS;
DEFINE INDEX IF NOT EXISTS notification_due ON TABLE notification COLUMNS sent, scheduled_for;
`
