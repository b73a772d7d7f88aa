package sqlinline

const QSelectProviderKey = `--sql 3f1c7a92-6b0e-4d58-9e21-a4c5d80f1b37
select api_key
from provider_keys
where provider = $1::text;
`

const QUpsertProviderKey = `--sql b94e2d16-0c7a-4f3b-8d95-62e1a7c4f0d8
insert into provider_keys (provider, api_key, source, updated_at)
values ($1::text, $2::text, $3::text, now())
on conflict (provider) do update set
    api_key = excluded.api_key,
    source = excluded.source,
    updated_at = now();
`

const QDeleteProviderKey = `--sql 5a08c3e7-91d4-4b62-a7f0-e3b6d29c8415
delete from provider_keys
where provider = $1::text;
`
