package handlers

// messages holds the user-facing text of every error code. The frontend is
// Russian first; English is the fallback for any other locale.
var messages = map[string]map[string]string{
	"bad_request": {
		"en": "The request could not be read.",
		"ru": "Некорректный запрос.",
	},
	"unauthorized": {
		"en": "Please sign in to continue.",
		"ru": "Требуется авторизация.",
	},
	"forbidden": {
		"en": "You do not have access to this resource.",
		"ru": "Доступ запрещён.",
	},
	"not_found": {
		"en": "Nothing was found.",
		"ru": "Ничего не найдено.",
	},
	"method_not_allowed": {
		"en": "Method Not Allowed",
		"ru": "Метод не поддерживается.",
	},
	"invalid_selection": {
		"en": "Some of the selected options are not valid.",
		"ru": "Выбраны недопустимые параметры.",
	},
	"incompatible_request": {
		"en": "The selected model cannot handle this request.",
		"ru": "Выбранная модель не поддерживает этот запрос.",
	},
	"missing_credential": {
		"en": "No API key is available for this model. Add your own key in the profile.",
		"ru": "Для этой модели нет API-ключа. Добавьте свой ключ в профиле.",
	},
	"insufficient_balance": {
		"en": "Not enough credits.",
		"ru": "Недостаточно кредитов.",
	},
	"promo_not_found": {
		"en": "Promo code not found.",
		"ru": "Промокод не найден.",
	},
	"promo_used": {
		"en": "You have already used this promo code.",
		"ru": "Вы уже использовали этот промокод.",
	},
	"username_taken": {
		"en": "A user with this username already exists.",
		"ru": "Пользователь с таким логином уже существует.",
	},
	"image_not_ready": {
		"en": "The image is not ready yet.",
		"ru": "Изображение ещё не готово.",
	},
	"relay_key_missing": {
		"en": "The server OhMyGPT key is not configured. Contact the administrator.",
		"ru": "Серверный ключ OhMyGPT не настроен. Обратитесь к администратору.",
	},
	"relay_missing_fields": {
		"en": "Missing prompt or model in request body.",
		"ru": "В запросе нет prompt или model.",
	},
	"internal": {
		"en": "Internal server error.",
		"ru": "Внутренняя ошибка сервера.",
	},
}

func message(locale, key string) string {
	texts, ok := messages[key]
	if !ok {
		texts = messages["internal"]
	}
	if text, ok := texts[locale]; ok {
		return text
	}
	return texts["en"]
}
