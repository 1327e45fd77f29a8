package db

// SchemaSQL contains the database schema initialization SQL: one table per
// aggregate plus the stored functions the dashboard calls over RPC.
const SchemaSQL = `
    -- ==========================================================================
    -- CONVERSATION TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS conversation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS title ON conversation TYPE string;
    -- Raw client field: historical rows hold plain strings, JSON-encoded
    -- objects, or UUIDs. Normalized on read, never rewritten.
    DEFINE FIELD IF NOT EXISTS client ON conversation TYPE string;
    DEFINE FIELD IF NOT EXISTS channel ON conversation TYPE string DEFAULT 'Web';
    -- Denormalized message count, recomputed after message upserts
    DEFINE FIELD IF NOT EXISTS messages ON conversation TYPE int DEFAULT 0;
    DEFINE FIELD IF NOT EXISTS date ON conversation TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS conversation_date ON conversation FIELDS date;
    DEFINE INDEX IF NOT EXISTS conversation_channel ON conversation FIELDS channel;

    -- ==========================================================================
    -- MESSAGE TABLE
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS message SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON message TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS content ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS sender ON message TYPE string;
    DEFINE FIELD IF NOT EXISTS timestamp ON message TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS message_conversation ON message FIELDS conversation;
    DEFINE INDEX IF NOT EXISTS message_timestamp ON message FIELDS timestamp;

    -- ==========================================================================
    -- PRODUCT CATALOG
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS product_type SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON product_type TYPE string;
    DEFINE FIELD IF NOT EXISTS description ON product_type TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS keywords ON product_type TYPE array<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON product_type TYPE datetime DEFAULT time::now();

    -- Backstop for the application-level duplicate check
    DEFINE INDEX IF NOT EXISTS product_type_name ON product_type FIELDS name UNIQUE;

    DEFINE TABLE IF NOT EXISTS product_mention SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS product ON product_mention TYPE record<product_type>;
    DEFINE FIELD IF NOT EXISTS conversation ON product_mention TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS message ON product_mention TYPE record<message>;
    DEFINE FIELD IF NOT EXISTS context ON product_mention TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON product_mention TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS product_mention_created ON product_mention FIELDS created_at;
    DEFINE INDEX IF NOT EXISTS product_mention_conversation ON product_mention FIELDS conversation;

    -- ==========================================================================
    -- REFERRALS
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS referral_type SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS name ON referral_type TYPE string;
    DEFINE FIELD IF NOT EXISTS email ON referral_type TYPE string DEFAULT '';
    DEFINE FIELD IF NOT EXISTS phone ON referral_type TYPE string DEFAULT '';

    DEFINE INDEX IF NOT EXISTS referral_type_name ON referral_type FIELDS name UNIQUE;

    DEFINE TABLE IF NOT EXISTS referral SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS conversation ON referral TYPE record<conversation>;
    DEFINE FIELD IF NOT EXISTS referral_type ON referral TYPE record<referral_type>;
    DEFINE FIELD IF NOT EXISTS notes ON referral TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON referral TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS referral_created ON referral FIELDS created_at;

    -- ==========================================================================
    -- USERS AND ROLES
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS profile SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS email ON profile TYPE string;
    DEFINE FIELD IF NOT EXISTS full_name ON profile TYPE option<string>;
    DEFINE FIELD IF NOT EXISTS created_at ON profile TYPE datetime DEFAULT time::now();

    DEFINE INDEX IF NOT EXISTS profile_email ON profile FIELDS email UNIQUE;

    DEFINE TABLE IF NOT EXISTS user_role SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS user ON user_role TYPE record<profile>;
    DEFINE FIELD IF NOT EXISTS role ON user_role TYPE string
        ASSERT $value IN ['usuario', 'admin', 'super_admin'];

    DEFINE INDEX IF NOT EXISTS user_role_unique ON user_role FIELDS user, role UNIQUE;

    -- ==========================================================================
    -- REGISTRATION INVITATIONS
    -- ==========================================================================
    DEFINE TABLE IF NOT EXISTS registration_invitation SCHEMAFULL;
    DEFINE FIELD IF NOT EXISTS email ON registration_invitation TYPE string;
    DEFINE FIELD IF NOT EXISTS expires_at ON registration_invitation TYPE datetime;
    DEFINE FIELD IF NOT EXISTS used ON registration_invitation TYPE bool DEFAULT false;
    DEFINE FIELD IF NOT EXISTS created_by ON registration_invitation TYPE string;
    DEFINE FIELD IF NOT EXISTS created_at ON registration_invitation TYPE datetime DEFAULT time::now();

    -- ==========================================================================
    -- STORED FUNCTIONS (called over RPC by the dashboard)
    -- ==========================================================================
    DEFINE FUNCTION IF NOT EXISTS fn::get_product_stats($start: datetime, $end: datetime) {
        RETURN SELECT product.name AS name, count() AS mentions FROM product_mention
            WHERE created_at >= $start AND created_at <= $end
            GROUP BY name ORDER BY mentions DESC;
    };

    DEFINE FUNCTION IF NOT EXISTS fn::get_referral_stats($start: datetime, $end: datetime) {
        RETURN SELECT referral_type.name AS name, count() AS referrals FROM referral
            WHERE created_at >= $start AND created_at <= $end
            GROUP BY name ORDER BY referrals DESC;
    };

    DEFINE FUNCTION IF NOT EXISTS fn::get_user_role($user: record<profile>) {
        LET $roles = (SELECT VALUE role FROM user_role WHERE user = $user);
        RETURN IF $roles CONTAINS 'super_admin' { 'super_admin' }
            ELSE IF $roles CONTAINS 'admin' { 'admin' }
            ELSE IF $roles CONTAINS 'usuario' { 'usuario' }
            ELSE { NONE };
    };

    -- Hierarchy check: a stored role satisfies any role at or below it
    DEFINE FUNCTION IF NOT EXISTS fn::has_role($user: record<profile>, $role: string) {
        LET $held = fn::get_user_role($user);
        RETURN IF $held = 'super_admin' { $role IN ['usuario', 'admin', 'super_admin'] }
            ELSE IF $held = 'admin' { $role IN ['usuario', 'admin'] }
            ELSE IF $held = 'usuario' { $role = 'usuario' }
            ELSE { false };
    };
`
