package models

import (
	"path"
	"strings"
)

// Question is one immutable item of a quiz bank, in the same shape the
// extracted bank files use.
type Question struct {
	Number        int      `json:"question_number"`
	Text          string   `json:"question_text"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	HasImage      bool     `json:"has_image"`
	ImageSrc      string   `json:"image_src,omitempty"`
	ImageAlt      string   `json:"image_alt,omitempty"`
}

// ImageFile returns the image path relative to the images directory.
// Extracted banks carry Windows-style paths such as `images\fig1.png`.
// Paths that leave the images directory yield "".
func (q Question) ImageFile() string {
	if !q.HasImage || q.ImageSrc == "" {
		return ""
	}
	clean := strings.ReplaceAll(q.ImageSrc, `\`, "/")
	clean = path.Clean(strings.ReplaceAll(clean, "images/", ""))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, "../") || path.IsAbs(clean) {
		return ""
	}
	return clean
}

// ImageURL returns the public URL the presentation layer serves the image under.
func (q Question) ImageURL() string {
	file := q.ImageFile()
	if file == "" {
		return ""
	}
	return "/quiz_images/" + file
}

// Bank is a named, immutable set of questions.
type Bank struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Questions []Question `json:"questions"`
}

// BankInfo is the listing entry for an available bank.
type BankInfo struct {
	ID             string `json:"id"`
	Title          string `json:"title"`
	TotalQuestions int    `json:"total_questions"`
}

// SkippedBank records a bank file that could not be loaded.
type SkippedBank struct {
	ID     string `json:"id"`
	File   string `json:"file"`
	Reason string `json:"reason"`
}

// Diagnostics describes what the bank loader found at startup.
type Diagnostics struct {
	BasePath       string        `json:"base_path"`
	BasePathExists bool          `json:"base_path_exists"`
	LoadedQuizzes  []string      `json:"loaded_quizzes"`
	QuizDetails    []BankInfo    `json:"quiz_details"`
	Skipped        []SkippedBank `json:"skipped"`
}
