package sqlinline

const QInsertPromoCode = `--sql d153a478-f5ff-4ddc-9e50-ae9390996b0e
insert into promo_codes (code, name, total_credits, created_at)
values ($1::text, $2::text, $3::int, now())
returning code, name, total_credits, created_at;
`

const QSelectPromoCodes = `--sql 3d990aaa-c3f6-470a-aca9-c6fddff8ab45
select
    p.code,
    p.name,
    p.total_credits,
    p.created_at,
    coalesce(array_agg(r.user_id::text order by r.created_at) filter (where r.user_id is not null), '{}') as used_by
from promo_codes p
left join promo_redemptions r on r.code = p.code
group by p.code, p.name, p.total_credits, p.created_at
order by p.created_at desc;
`

const QDeletePromoCode = `--sql 053c08c9-d57a-4315-a944-8682e73df118
delete from promo_codes
where code = $1::text;
`

// QRedeemPromoCode records the redemption and credits the user in one
// statement. found and redeemed tell the caller which check failed.
const QRedeemPromoCode = `--sql 89691127-f6cc-42d9-8e65-9495118bdd1f
with promo as (
    select code, total_credits
    from promo_codes
    where code = $1::text
),
redeemed as (
    insert into promo_redemptions (code, user_id, created_at)
    select code, $2::uuid, now()
    from promo
    on conflict (code, user_id) do nothing
    returning code
),
credited as (
    update users
    set credits = credits + (select total_credits from promo),
        updated_at = now()
    where id = $2::uuid
      and exists (select 1 from redeemed)
    returning credits
)
select
    exists (select 1 from promo) as found,
    exists (select 1 from redeemed) as redeemed,
    coalesce((select total_credits from promo), 0) as granted;
`
