package usecase

// defaultSynonymRules rewrite common spellings to the form the catalog uses.
// Patterns are matched after case folding and script unification, so they
// are written in lowercase. No canonical form may itself match its pattern.
var defaultSynonymRules = []SynonymRule{
	// Vitamins: Cyrillic letter look-alikes in vitamin codes
	{Pattern: `б\s?-?12`, Canonical: "b12", IsRegex: true},
	{Pattern: `в-?12`, Canonical: "b12", IsRegex: true},
	{Pattern: `д\s?-?3`, Canonical: "d3", IsRegex: true},
	{Pattern: `b(\s-?|-)12`, Canonical: "b12", IsRegex: true},
	{Pattern: `d(\s-?|-)3`, Canonical: "d3", IsRegex: true},
	{Pattern: "витамин д", Canonical: "витамин d3"},
	{Pattern: "витамин ц", Canonical: "витамин c"},

	// Common clinical shorthand
	{Pattern: "оак", Canonical: "общий анализ крови"},
	{Pattern: "оам", Canonical: "общий анализ мочи"},
	{Pattern: "биохимия крови", Canonical: "биохимический анализ крови"},
	{Pattern: "биохимия", Canonical: "биохимический анализ крови"},
	{Pattern: "ттг", Canonical: "тиреотропный гормон"},
	{Pattern: "tsh", Canonical: "тиреотропный гормон"},
	{Pattern: "hba1c", Canonical: "гликированный гемоглобин"},
	{Pattern: "гликозилированный гемоглобин", Canonical: "гликированный гемоглобин"},
	{Pattern: "сахар крови", Canonical: "глюкоза"},
	{Pattern: "сахар", Canonical: "глюкоза"},
	{Pattern: "коронавирус", Canonical: "covid-19"},
	{Pattern: "ковид", Canonical: "covid-19"},
}

// defaultCriticalTerms are short abbreviations that fuzzy-match poorly.
// Keys are checked against the folded raw query; values are catalog names.
var defaultCriticalTerms = map[string]string{
	"рф":  "рф-суммарный",
	"rf":  "рф-суммарный",
	"ige": "ige общий",
	"иге": "ige общий",
	"igg": "igg общий",
	"срб": "с-реактивный белок",
	"crp": "с-реактивный белок",
	"асло": "асл-о",
}

// stopWords carry no catalog meaning and are skipped by the fuzzy pass.
var stopWords = map[string]bool{
	// Question filler
	"сколько": true, "стоит": true, "стоимость": true, "цена": true, "цены": true,
	"какая": true, "какой": true, "какие": true, "почем": true, "прайс": true,
	"можно": true, "нужно": true, "надо": true, "хочу": true, "хотел": true, "хотела": true,
	"сдать": true, "сделать": true, "пройти": true, "узнать": true, "подскажите": true,
	"пожалуйста": true, "здравствуйте": true, "добрый": true, "день": true, "вечер": true,
	"есть": true, "вас": true, "мне": true, "это": true, "как": true, "где": true,
	"для": true, "под": true, "про": true, "или": true, "так": true, "тоже": true,
	// Generic test words present in many catalog names
	"анализ": true, "анализы": true, "анализа": true, "тест": true, "исследование": true,
	"определение": true, "уровень": true, "уровня": true,
	"общий": true, "общая": true, "общее": true, "общие": true,
	"витамин": true, "витамины": true, "витамина": true,
	// English filler
	"how": true, "much": true, "price": true, "cost": true, "the": true, "test": true,
	"and": true, "for": true, "what": true, "please": true,
}

// notFoundMarkers indicate that a generated answer could not find the test.
// They are matched against the folded answer text.
var notFoundMarkers = []string{
	"не найден",
	"не нашел",
	"не нашёл",
	"не нашла",
	"не удалось найти",
	"не могу найти",
	"нет в списке",
	"нет в каталоге",
	"нет информации",
	"отсутствует в",
	"уточните у администратора",
	"not found",
	"no information",
}

// compareTriggers start the comparison flow when they make up the whole message.
var compareTriggers = map[string]bool{
	"сравнить":      true,
	"сравни":        true,
	"сравнение":     true,
	"сравнить цены": true,
	"compare":       true,
}

// latinToCyrillic maps Latin letters that look like Cyrillic ones.
var latinToCyrillic = map[rune]rune{
	'a': 'а', 'b': 'в', 'c': 'с', 'e': 'е', 'h': 'н', 'k': 'к', 'm': 'м',
	'o': 'о', 'p': 'р', 't': 'т', 'x': 'х', 'y': 'у',
}

// cyrillicToLatin is the inverse of latinToCyrillic.
var cyrillicToLatin = func() map[rune]rune {
	m := make(map[rune]rune, len(latinToCyrillic))
	for lat, cyr := range latinToCyrillic {
		m[cyr] = lat
	}
	return m
}()

// transliteration is the phonetic key used by the fuzzy pass so that
// "krovi" and "крови" compare equal.
var transliteration = map[rune]string{
	'а': "a", 'б': "b", 'в': "v", 'г': "g", 'д': "d", 'е': "e", 'ё': "e",
	'ж': "zh", 'з': "z", 'и': "i", 'й': "i", 'к': "k", 'л': "l", 'м': "m",
	'н': "n", 'о': "o", 'п': "p", 'р': "r", 'с': "s", 'т': "t", 'у': "u",
	'ф': "f", 'х': "h", 'ц': "ts", 'ч': "ch", 'ш': "sh", 'щ': "sch", 'ъ': "",
	'ы': "y", 'ь': "", 'э': "e", 'ю': "yu", 'я': "ya",
	// OCR and keyboard digit look-alikes
	'0': "o", '1': "i",
	// Latin spellings that differ from the table above
	'w': "v", 'x': "h",
}
