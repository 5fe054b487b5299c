package formula

import (
	"github.com/shopspring/decimal"
)

// QuestionID identifies a diagnostic quiz question.
type QuestionID string

const (
	QuestionSport     QuestionID = "sport"
	QuestionDuration  QuestionID = "duration"
	QuestionSweat     QuestionID = "sweat"
	QuestionGut       QuestionID = "gut"
	QuestionCaffeine  QuestionID = "caffeine"
	QuestionFlavor    QuestionID = "flavor"
	QuestionThickness QuestionID = "thickness"
)

// Question is one step of the quiz with its answer labels.
type Question struct {
	ID      QuestionID
	Text    string
	Options []string
}

// Answers maps a question to the chosen option label.
type Answers map[QuestionID]string

var questions = []Question{
	{QuestionSport, "What is your primary sport?", []string{"Running", "Cycling", "Triathlon", "Trail / Ultra", "Other"}},
	{QuestionDuration, "Average training duration?", []string{"Under 1 hour", "1–2 hours", "2–3 hours", "3+ hours"}},
	{QuestionSweat, "How would you describe your sweat rate?", []string{"Light", "Moderate", "Heavy", "Very Heavy / Very Salty"}},
	{QuestionGut, "How sensitive is your stomach during intense efforts?", []string{"Iron Stomach", "Normal", "Somewhat Sensitive", "Very Sensitive"}},
	{QuestionCaffeine, "Do you want caffeine in your gel?", []string{"Yes — every dose", "Yes — race day only", "No thanks"}},
	{QuestionFlavor, "What flavor sounds best?", []string{"Tropical Mango", "Strawberry Lemonade", "Orange Citrus", "Watermelon Mint", "Neutral / Unflavored"}},
	{QuestionThickness, "What gel consistency do you prefer?", []string{"Thin & Liquid", "Standard Gel", "Thick & Concentrated"}},
}

// Questions returns the quiz in presentation order.
func Questions() []Question {
	out := make([]Question, len(questions))
	for i, q := range questions {
		q.Options = append([]string(nil), q.Options...)
		out[i] = q
	}
	return out
}

var (
	carbsByDuration = map[string]int{
		"Under 1 hour": 20,
		"1–2 hours":    30,
		"2–3 hours":    45,
		"3+ hours":     60,
	}
	sodiumBySweat = map[string]int{
		"Light":                   100,
		"Moderate":                250,
		"Heavy":                   400,
		"Very Heavy / Very Salty": 550,
	}
	caffeineByChoice = map[string]int{
		"Yes — every dose":    75,
		"Yes — race day only": 50,
		"No thanks":           0,
	}
	thicknessByChoice = map[string]int{
		"Thin & Liquid":        1,
		"Standard Gel":         3,
		"Thick & Concentrated": 5,
	}
	fructoseByGut = map[string]decimal.Decimal{
		"Iron Stomach":       decimal.RequireFromString("0.5"),
		"Normal":             decimal.RequireFromString("0.35"),
		"Somewhat Sensitive": decimal.RequireFromString("0.25"),
		"Very Sensitive":     decimal.RequireFromString("0.15"),
	}
)

// MapQuiz turns quiz answers into a starting recipe. Unanswered or
// unrecognised answers fall back to the slider defaults, so every input
// yields valid Parameters. The sport question does not affect the recipe.
func MapQuiz(a Answers) Parameters {
	p := DefaultParameters()
	if v, ok := carbsByDuration[a[QuestionDuration]]; ok {
		p.CarbsG = v
	}
	if v, ok := sodiumBySweat[a[QuestionSweat]]; ok {
		p.SodiumMg = v
	}
	if v, ok := caffeineByChoice[a[QuestionCaffeine]]; ok {
		p.CaffeineMg = v
	}
	if v, ok := thicknessByChoice[a[QuestionThickness]]; ok {
		p.Thickness = v
	}
	if v, ok := fructoseByGut[a[QuestionGut]]; ok {
		p.FructoseRatio = v
	}
	if f, ok := FlavorFromLabel(a[QuestionFlavor]); ok {
		p.Flavor = f
	}
	return p
}
