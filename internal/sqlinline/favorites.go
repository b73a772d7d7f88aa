package sqlinline

const QSelectFavoriteFolders = `--sql 9f2be06a-3422-48ca-8f92-d55a19d2a987
select id, category, name, created_at
from favorite_folders
where user_id = $1::uuid
order by created_at asc;
`

const QSelectFavoriteImages = `--sql def54e1c-d2ab-4085-88f8-45ad698580c0
select category, folder_id, image_id
from favorite_images
where user_id = $1::uuid
order by created_at asc;
`

const QInsertFavoriteFolder = `--sql d4ece7c8-1e1e-4751-aa56-266be8d41539
insert into favorite_folders (id, user_id, category, name, created_at)
values ($1::text, $2::uuid, $3::text, $4::text, now())
returning created_at;
`

const QRenameFavoriteFolder = `--sql 91493ca3-0a8d-4276-a619-a5ece460d02d
update favorite_folders
set name = $3::text
where user_id = $1::uuid
  and id = $2::text;
`

// QDeleteFavoriteFolder drops the folder and the images filed in it.
const QDeleteFavoriteFolder = `--sql e28ad06d-a883-4708-8035-baa629ca6ba8
with images as (
    delete from favorite_images
    where user_id = $1::uuid
      and folder_id = $2::text
)
delete from favorite_folders
where user_id = $1::uuid
  and id = $2::text;
`

const QFavoriteFolderExists = `--sql 60536cf8-8e76-4cca-81dc-a31b40c7f40f
select exists (
    select 1
    from favorite_folders
    where user_id = $1::uuid
      and category = $2::text
      and id = $3::text
);
`

const QInsertFavoriteImage = `--sql bd4f39d0-097c-48e0-890f-9c21e2de0bd7
insert into favorite_images (user_id, category, folder_id, image_id, created_at)
values ($1::uuid, $2::text, $3::text, $4::text, now())
on conflict (user_id, category, folder_id, image_id) do nothing;
`

// QDeleteFavoriteImage removes the image from root and every folder.
const QDeleteFavoriteImage = `--sql ff644230-8796-4308-ae90-860db56bc955
delete from favorite_images
where user_id = $1::uuid
  and image_id = $2::text;
`
