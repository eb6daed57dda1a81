package usecase

// Fixed replies. None of them expose internal errors to the requester.
const (
	msgGreeting = "Здравствуйте! Я помогу узнать стоимость и сроки анализов.\n" +
		"Напишите название анализа, например «витамин D» или «ОАК».\n" +
		"Чтобы сравнить цены последнего запроса с другими лабораториями, напишите «сравнить»."
	msgApology           = "Извините, сейчас не получается ответить на ваш вопрос."
	msgOperatorNotified  = "Я передал ваш вопрос администратору, он ответит вам в ближайшее время."
	msgNothingToCompare  = "Нечего сравнивать: сначала спросите о каком-нибудь анализе."
	msgComparisonHeader  = "Цены в других лабораториях:"
	msgNoCompetitorData  = "нет данных о ценах конкурентов для «%s»"
	msgMatchesHeader     = "Нашёл в нашем каталоге:"
	msgReplyUsage        = "Формат: reply <id> <текст>"
	msgReplyDelivered    = "Ответ отправлен пользователю %s."
	msgReplyNoEscalation = "Ответ отправлен пользователю %s (открытого запроса не было)."
	msgReplyFailed       = "Не удалось доставить ответ пользователю %s."
	msgNoPending         = "Открытых запросов нет."
	msgPendingHeader     = "Открытые запросы:"
	placeholder          = "не указано"
)

// operatorNotice is what the operator receives when a query is escalated.
// The last line is ready to be copied and completed.
const operatorNotice = "Новый вопрос без ответа\n" +
	"Пользователь: %s\n" +
	"Причина: %s\n" +
	"Запрос: %s\n\n" +
	"Ответить: reply %s <текст>"
