package categorize

// Default is the category of a description nothing matches.
const Default = "אחר"

// Uncategorized labels transactions stored without any category in aggregates.
const Uncategorized = "ללא קטגוריה"

// Category is a built-in category with its UI presentation and merchant fragments.
type Category struct {
	Name     string
	Icon     string
	Color    string
	Emoji    string
	Patterns []string
}

// Builtin is scanned in order; the first category with a matching fragment wins.
var Builtin = []Category{
	{
		Name: "מזון וסופר", Icon: "ShoppingCart", Color: "#22c55e", Emoji: "🛒",
		Patterns: []string{
			"שופרסל", "רמי לוי", "ויקטורי", "יוחננוף", "אושר עד", "מגה",
			"חצי חינם", "סופר", "מרקט", "שוק", "ירקות", "פירות",
			"טיב טעם", "יינות ביתן", "סלא", "פרש מרקט", "קרפור",
			"ניו פארם", "מחסני השוק", "זול ובגדול", "קינג סטור",
		},
	},
	{
		Name: "מסעדות וקפה", Icon: "Coffee", Color: "#f97316", Emoji: "☕",
		Patterns: []string{
			"מקדונלד", "ארומה", "קפה קפה", "דומינו", "שווארמה",
			"פיצה", "סושי", "בורגר", "קפה", "מסעדה", "ביסטרו",
			"רולדין", "גרג", "לנדוור", "כפית", "חומוס", "פלאפל",
			"באגט", "ג'ירפה", "וולט", "תן ביס",
		},
	},
	{
		Name: "דלק ורכב", Icon: "Fuel", Color: "#ef4444", Emoji: "⛽",
		Patterns: []string{
			"פז", "דלק", "סונול", "דור אלון", "חניון", "חניה",
			"טסט", "ביטוח רכב", "שמן", "צמיגים", "מוסך", "דור-אלון",
			"ten", "אלון", "ביטוח חובה",
		},
	},
	{
		Name: "בריאות", Icon: "Heart", Color: "#ec4899", Emoji: "💚",
		Patterns: []string{
			"מכבי", "כללית", "מאוחדת", "לאומית", "סופר פארם",
			"בית מרקחת", "רופא", "מרפאה", "בדיקה", "אופטיק",
			"משקפיים", "שיניים", "פארם",
		},
	},
	{
		Name: "ביגוד והנעלה", Icon: "Shirt", Color: "#8b5cf6", Emoji: "👕",
		Patterns: []string{
			"זארה", "H&M", "קסטרו", "גולף", "פוקס", "מנגו",
			"נעלי", "בגדי", "אופנה", "רנואר", "תמנון",
			"טרמינל", "סטורי", "שופרא",
		},
	},
	{
		Name: "חינוך", Icon: "GraduationCap", Color: "#0ea5e9", Emoji: "🎓",
		Patterns: []string{
			"גן ילדים", "בית ספר", "חוגים", "קורס", "שכר לימוד",
			"ספרים", "משרד החינוך", "צהרון", "חוג",
		},
	},
	{
		Name: "בילויים ופנאי", Icon: "Ticket", Color: "#f59e0b", Emoji: "🎫",
		Patterns: []string{
			"סינמה", "קולנוע", "הצגה", "כרטיס", "פארק", "לונה",
			"הופעה", "מוזיאון", "תיאטרון", "סינמה סיטי", "יס פלנט",
			"סלופארק",
		},
	},
	{
		Name: "תקשורת", Icon: "Wifi", Color: "#06b6d4", Emoji: "📶",
		Patterns: []string{
			"סלקום", "פלאפון", "הוט", "פרטנר", "בזק", "גולן",
			"012", "013", "נטוויז'ן", "yes", "רמי", "אינטרנט",
		},
	},
	{
		Name: "חשבונות בית", Icon: "Home", Color: "#64748b", Emoji: "🏠",
		Patterns: []string{
			"חשמל", "חברת חשמל", "מים", "מקורות", "ארנונה", "גז",
			"ועד בית", "עירייה", "דירה", "שכירות", "משכנתא",
		},
	},
	{
		Name: "קניות כלליות", Icon: "ShoppingBag", Color: "#a855f7", Emoji: "🛍️",
		Patterns: []string{
			"אמזון", "amazon", "עלי אקספרס", "aliexpress", "איקאה",
			"ace", "הום סנטר", "אייס",
		},
	},
	{
		Name: "העברות", Icon: "ArrowLeftRight", Color: "#94a3b8", Emoji: "🔄",
		Patterns: []string{
			"העברה", "שיק", "המחאה", "ביט", "פייבוקס", "paybox",
		},
	},
}

const defaultEmoji = "📦"

// Emoji returns the report emoji of a category, 📦 for anything not built in.
func Emoji(category string) string {
	for _, c := range Builtin {
		if c.Name == category {
			return c.Emoji
		}
	}
	return defaultEmoji
}
