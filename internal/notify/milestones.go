package notify

// DefaultMilestones returns the answered-count checkpoints and their phrases.
func DefaultMilestones() map[int]string {
	return map[int]string{
		1:   "First answer in. Go with your first instinct.",
		5:   "Five answers in. Patterns are starting to form.",
		15:  "15 answers. Your profile is taking shape.",
		25:  "25 answers. The picture is getting sharper.",
		40:  "40 answers. Confidence is building across traits.",
		60:  "60 answers. Fine-tuning the details now.",
		80:  "80 answers. Nearly there.",
		100: "100 answers. Thanks for being thorough.",
	}
}
