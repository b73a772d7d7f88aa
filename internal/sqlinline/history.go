package sqlinline

const QInsertHistoryEntry = `--sql af651a51-e0ed-4a7f-8a67-38f622573cc9
insert into generation_history (id, user_id, batch_id, provider, prompt, aspect_ratio, storage_key, mime_type, created_at)
values ($1::text, $2::uuid, $3::text, $4::text, $5::text, $6::text, $7::text, $8::text, now())
on conflict (id) do update set
    storage_key = excluded.storage_key,
    mime_type = excluded.mime_type,
    prompt = excluded.prompt,
    created_at = now()
returning created_at;
`

const QSelectHistoryEntry = `--sql cb98d7db-ad08-429d-9c1f-f5e37ec95f87
select id, user_id, batch_id, provider, prompt, aspect_ratio, storage_key, mime_type, created_at
from generation_history
where user_id = $1::uuid
  and id = $2::text
limit 1;
`

const QSelectHistoryByUser = `--sql a955143f-05c9-48f9-885c-f4337c5b68c6
select id, user_id, batch_id, provider, prompt, aspect_ratio, storage_key, mime_type, created_at
from generation_history
where user_id = $1::uuid
order by created_at desc
limit $2::int;
`

const QDeleteHistoryEntry = `--sql 6a8d3f21-b47c-4e90-8d15-f2c6e09b7a53
delete from generation_history
where user_id = $1::uuid
  and id = $2::text
returning id, user_id, batch_id, provider, prompt, aspect_ratio, storage_key, mime_type, created_at;
`
