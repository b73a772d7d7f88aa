package sqlinline

// QCreateSchema is idempotent and runs without arguments, so pgx sends it over
// the simple protocol as one multi-statement batch.
const QCreateSchema = `--sql 68d7fe50-1255-4b55-b7c4-875d7e56e17b
create table if not exists users (
    id uuid primary key default gen_random_uuid(),
    username text not null,
    role text not null default 'user',
    credits int not null default 0 check (credits >= 0),
    payment_mode text not null default 'credits',
    api_key text not null default '',
    locale text not null default '',
    created_at timestamptz not null default now(),
    updated_at timestamptz not null default now()
);
create unique index if not exists users_username_key on users (lower(username));

create table if not exists provider_keys (
    provider text primary key,
    api_key text not null,
    source text not null default '',
    updated_at timestamptz not null default now()
);

create table if not exists promo_codes (
    code text primary key,
    name text not null default '',
    total_credits int not null check (total_credits > 0),
    created_at timestamptz not null default now()
);

create table if not exists promo_redemptions (
    code text not null references promo_codes (code) on delete cascade,
    user_id uuid not null references users (id) on delete cascade,
    created_at timestamptz not null default now(),
    primary key (code, user_id)
);

create table if not exists favorite_folders (
    id text primary key,
    user_id uuid not null references users (id) on delete cascade,
    category text not null,
    name text not null,
    created_at timestamptz not null default now()
);

create table if not exists favorite_images (
    user_id uuid not null references users (id) on delete cascade,
    category text not null,
    folder_id text not null,
    image_id text not null,
    created_at timestamptz not null default now(),
    primary key (user_id, category, folder_id, image_id)
);

create table if not exists generation_history (
    id text primary key,
    user_id uuid not null references users (id) on delete cascade,
    batch_id text not null,
    provider text not null,
    prompt text not null,
    aspect_ratio text not null,
    storage_key text not null,
    mime_type text not null,
    created_at timestamptz not null default now()
);
create index if not exists generation_history_user_idx on generation_history (user_id, created_at desc);
`
