package registry

import "riskmap/internal/models"

// Catalog returns the compiled-in feed catalog, weighted toward conflict
// zones and the major wire services that cover them. Priorities reflect how
// often a source breaks conflict news first, not editorial quality.
func Catalog() []models.Source {
	return []models.Source{
		// Ukraine war (Ukrainian-language)
		{Name: "Ukrainska Pravda", FeedURL: "https://www.pravda.com.ua/rss/", Protocol: models.ProtocolRSS, Language: "uk", Country: "UA", Region: "Eastern Europe", Priority: models.PriorityCritical, ConflictZoneTag: "ukraine"},
		{Name: "Ukrinform", FeedURL: "https://www.ukrinform.ua/rss", Protocol: models.ProtocolRSS, Language: "uk", Country: "UA", Region: "Eastern Europe", Priority: models.PriorityCritical, ConflictZoneTag: "ukraine"},
		{Name: "Censor.NET", FeedURL: "https://censor.net/ua/rss/news", Protocol: models.ProtocolRSS, Language: "uk", Country: "UA", Region: "Eastern Europe", Priority: models.PriorityCritical, ConflictZoneTag: "ukraine"},
		{Name: "Dzerkalo Tyzhnia", FeedURL: "https://zn.ua/rss/", Protocol: models.ProtocolRSS, Language: "uk", Country: "UA", Region: "Eastern Europe", Priority: models.PriorityHigh, ConflictZoneTag: "ukraine"},
		{Name: "24 Kanal", FeedURL: "https://24tv.ua/rss/", Protocol: models.ProtocolRSS, Language: "uk", Country: "UA", Region: "Eastern Europe", Priority: models.PriorityHigh, ConflictZoneTag: "ukraine"},
		{Name: "BBC Ukraine", FeedURL: "https://feeds.bbci.co.uk/ukrainian/rss.xml", Protocol: models.ProtocolRSS, Language: "uk", Country: "GB", Region: "Eastern Europe", Priority: models.PriorityCritical, ConflictZoneTag: "ukraine"},

		// Russia (Russian-language)
		{Name: "Meduza", FeedURL: "https://meduza.io/rss/all", Protocol: models.ProtocolRSS, Language: "ru", Country: "LV", Region: "Eastern Europe", Priority: models.PriorityCritical, ConflictZoneTag: "ukraine"},
		{Name: "Interfax", FeedURL: "https://www.interfax.ru/rss.asp", Protocol: models.ProtocolRSS, Language: "ru", Country: "RU", Region: "Eastern Europe", Priority: models.PriorityHigh, ConflictZoneTag: "ukraine"},
		{Name: "Novaya Gazeta Europe", FeedURL: "https://novayagazeta.eu/feed/rss", Protocol: models.ProtocolRSS, Language: "ru", Country: "LV", Region: "Eastern Europe", Priority: models.PriorityHigh, ConflictZoneTag: "ukraine"},

		// Israel / Palestine (Hebrew and Arabic)
		{Name: "Haaretz", FeedURL: "https://www.haaretz.co.il/cmlink/1.1617539", Protocol: models.ProtocolRSS, Language: "he", Country: "IL", Region: "Middle East", Priority: models.PriorityCritical, ConflictZoneTag: "israel-palestine"},
		{Name: "Ynet", FeedURL: "https://www.ynet.co.il/integration/StoryRss2.xml", Protocol: models.ProtocolRSS, Language: "he", Country: "IL", Region: "Middle East", Priority: models.PriorityCritical, ConflictZoneTag: "israel-palestine"},
		{Name: "Times of Israel Hebrew", FeedURL: "https://he.timesofisrael.com/feed/", Protocol: models.ProtocolRSS, Language: "he", Country: "IL", Region: "Middle East", Priority: models.PriorityHigh, ConflictZoneTag: "israel-palestine"},
		{Name: "Al Jazeera Arabic", FeedURL: "https://www.aljazeera.net/aljazeerarss", Protocol: models.ProtocolRSS, Language: "ar", Country: "QA", Region: "Middle East", Priority: models.PriorityCritical, ConflictZoneTag: "israel-palestine"},
		{Name: "Al Arabiya", FeedURL: "https://www.alarabiya.net/feed/rss2/ar.xml", Protocol: models.ProtocolRSS, Language: "ar", Country: "SA", Region: "Middle East", Priority: models.PriorityHigh, ConflictZoneTag: "israel-palestine"},
		{Name: "Asharq Al-Awsat", FeedURL: "https://aawsat.com/feed", Protocol: models.ProtocolRSS, Language: "ar", Country: "SA", Region: "Middle East", Priority: models.PriorityHigh},

		// Wider Middle East
		{Name: "Syria Direct", FeedURL: "https://syriadirect.org/feed/", Protocol: models.ProtocolRSS, Language: "ar", Country: "SY", Region: "Middle East", Priority: models.PriorityCritical, ConflictZoneTag: "syria"},
		{Name: "Rudaw", FeedURL: "https://www.rudaw.net/rss", Protocol: models.ProtocolRSS, Language: "ar", Country: "IQ", Region: "Middle East", Priority: models.PriorityHigh, ConflictZoneTag: "iraq"},
		{Name: "Yemen Press Agency", FeedURL: "https://www.ypagency.net/feed", Protocol: models.ProtocolRSS, Language: "ar", Country: "YE", Region: "Middle East", Priority: models.PriorityHigh, ConflictZoneTag: "yemen"},

		// Sahel and Horn of Africa
		{Name: "Sahara Reporters", FeedURL: "https://saharareporters.com/feed", Protocol: models.ProtocolRSS, Language: "en", Country: "NG", Region: "West Africa", Priority: models.PriorityHigh, ConflictZoneTag: "sahel"},
		{Name: "Sudan Tribune", FeedURL: "https://sudantribune.com/feed/", Protocol: models.ProtocolRSS, Language: "en", Country: "SD", Region: "East Africa", Priority: models.PriorityCritical, ConflictZoneTag: "sudan"},
		{Name: "Garowe Online", FeedURL: "https://www.garoweonline.com/en/rss", Protocol: models.ProtocolRSS, Language: "en", Country: "SO", Region: "East Africa", Priority: models.PriorityHigh, ConflictZoneTag: "horn-of-africa"},
		{Name: "Addis Standard", FeedURL: "https://addisstandard.com/feed/", Protocol: models.ProtocolRSS, Language: "en", Country: "ET", Region: "East Africa", Priority: models.PriorityHigh, ConflictZoneTag: "horn-of-africa"},

		// South and East Asia
		{Name: "Dawn", FeedURL: "https://www.dawn.com/feeds/home", Protocol: models.ProtocolRSS, Language: "en", Country: "PK", Region: "South Asia", Priority: models.PriorityHigh, ConflictZoneTag: "kashmir"},
		{Name: "The Kathmandu Post", FeedURL: "https://kathmandupost.com/rss", Protocol: models.ProtocolRSS, Language: "en", Country: "NP", Region: "South Asia", Priority: models.PriorityStandard},
		{Name: "Taipei Times", FeedURL: "https://www.taipeitimes.com/xml/index.rss", Protocol: models.ProtocolRSS, Language: "en", Country: "TW", Region: "East Asia", Priority: models.PriorityHigh, ConflictZoneTag: "taiwan-strait"},
		{Name: "The Irrawaddy", FeedURL: "https://www.irrawaddy.com/feed", Protocol: models.ProtocolRSS, Language: "en", Country: "MM", Region: "Southeast Asia", Priority: models.PriorityCritical, ConflictZoneTag: "myanmar"},

		// International wires (English)
		{Name: "BBC World", FeedURL: "https://feeds.bbci.co.uk/news/world/rss.xml", Protocol: models.ProtocolRSS, Language: "en", Country: "GB", Region: "Global", Priority: models.PriorityCritical},
		{Name: "Reuters World", FeedURL: "https://www.reutersagency.com/feed/?best-topics=political-general&post_type=best", Protocol: models.ProtocolRSS, Language: "en", Country: "GB", Region: "Global", Priority: models.PriorityCritical},
		{Name: "AP Top News", FeedURL: "https://rsshub.app/apnews/topics/apf-topnews", Protocol: models.ProtocolRSS, Language: "en", Country: "US", Region: "Global", Priority: models.PriorityCritical},
		{Name: "Al Jazeera English", FeedURL: "https://www.aljazeera.com/xml/rss/all.xml", Protocol: models.ProtocolRSS, Language: "en", Country: "QA", Region: "Global", Priority: models.PriorityCritical},
		{Name: "France 24", FeedURL: "https://www.france24.com/en/rss", Protocol: models.ProtocolRSS, Language: "en", Country: "FR", Region: "Global", Priority: models.PriorityHigh},
		{Name: "DW News", FeedURL: "https://rss.dw.com/rdf/rss-en-all", Protocol: models.ProtocolRSS, Language: "en", Country: "DE", Region: "Global", Priority: models.PriorityHigh},

		// Spanish-language
		{Name: "El Pais Internacional", FeedURL: "https://feeds.elpais.com/mrss-s/pages/ep/site/elpais.com/section/internacional/portada", Protocol: models.ProtocolRSS, Language: "es", Country: "ES", Region: "Global", Priority: models.PriorityHigh},
		{Name: "Infobae America", FeedURL: "https://www.infobae.com/america/arc/outboundfeeds/rss/", Protocol: models.ProtocolRSS, Language: "es", Country: "AR", Region: "Latin America", Priority: models.PriorityStandard},
		{Name: "El Tiempo", FeedURL: "https://www.eltiempo.com/rss/mundo.xml", Protocol: models.ProtocolRSS, Language: "es", Country: "CO", Region: "Latin America", Priority: models.PriorityStandard, ConflictZoneTag: "colombia"},

		// French-language (Sahel coverage)
		{Name: "RFI Afrique", FeedURL: "https://www.rfi.fr/fr/afrique/rss", Protocol: models.ProtocolRSS, Language: "fr", Country: "FR", Region: "West Africa", Priority: models.PriorityHigh, ConflictZoneTag: "sahel"},
		{Name: "Jeune Afrique", FeedURL: "https://www.jeuneafrique.com/feed/", Protocol: models.ProtocolRSS, Language: "fr", Country: "FR", Region: "West Africa", Priority: models.PriorityStandard, ConflictZoneTag: "sahel"},

		// Chinese-language
		{Name: "BBC Chinese", FeedURL: "https://feeds.bbci.co.uk/zhongwen/simp/rss.xml", Protocol: models.ProtocolRSS, Language: "zh", Country: "GB", Region: "East Asia", Priority: models.PriorityHigh, ConflictZoneTag: "taiwan-strait"},
		{Name: "Initium Media", FeedURL: "https://theinitium.com/newsfeed/", Protocol: models.ProtocolRSS, Language: "zh", Country: "SG", Region: "East Asia", Priority: models.PriorityStandard},
	}
}
