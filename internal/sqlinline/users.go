package sqlinline

const QInsertUser = `--sql fd627c80-c85a-419e-9e03-d418ccdea669
insert into users (id, username, role, credits, payment_mode, api_key, locale, created_at, updated_at)
values (gen_random_uuid(), $1::text, 'user', $2::int, 'credits', '', '', now(), now())
returning id, username, role, credits, payment_mode, api_key, locale, created_at, updated_at;
`

const QSelectUserByID = `--sql f0b7fa8a-2fc0-48a1-a08e-34d0fff24e88
select id, username, role, credits, payment_mode, api_key, locale, created_at, updated_at
from users
where id = $1::uuid
limit 1;
`

const QSelectUserByUsername = `--sql a6bd2b84-5b34-446a-b1f6-7d5e7cc2ce66
select id, username, role, credits, payment_mode, api_key, locale, created_at, updated_at
from users
where lower(username) = lower($1::text)
limit 1;
`

const QUpdateUserPayment = `--sql 0fe01d47-d03a-41e3-ad7d-ab72e49e4ee0
update users
set payment_mode = $2::text,
    api_key = $3::text,
    updated_at = now()
where id = $1::uuid;
`

const QAddUserCredits = `--sql 2c7aef3c-68c9-40f6-b3a8-c6c395af9b43
update users
set credits = credits + $2::int,
    updated_at = now()
where id = $1::uuid
returning credits;
`

// QChargeUserCredits deducts only when the balance covers the amount, so two
// concurrent batches can never drive credits negative.
const QChargeUserCredits = `--sql 125997f3-e9fd-434b-9782-15b2d9121e50
update users
set credits = credits - $2::int,
    updated_at = now()
where id = $1::uuid
  and credits >= $2::int
returning credits;
`

const QUpdateUserRole = `--sql 7b3e9d41-52c8-4f0e-9a6d-e1c4f8b2a073
update users
set role = $2::text,
    updated_at = now()
where id = $1::uuid;
`

const QSelectUsers = `--sql c2a54f18-90e7-4d3b-b6f1-3d8e27a9c5e4
select id, username, role, credits, payment_mode, api_key, locale, created_at, updated_at
from users
order by created_at desc
limit $1::int;
`

const QUpdateUser = `--sql 4d1f6a92-8c3e-47b5-a0d9-5e2b71c8f316
update users
set username = coalesce($2::text, username),
    credits = coalesce($3::int, credits),
    updated_at = now()
where id = $1::uuid
returning id, username, role, credits, payment_mode, api_key, locale, created_at, updated_at;
`

// QDeleteUser relies on the cascading foreign keys for favorites, promo
// redemptions and history rows.
const QDeleteUser = `--sql 9e62c0b7-3a15-4f8d-b2e4-c7a19d5f0834
delete from users
where id = $1::uuid;
`
