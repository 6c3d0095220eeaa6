package models

// KnownSkill is a skill the player has learned.
type KnownSkill struct {
	ID              string   `json:"id"`
	Level           int      `json:"level"`
	CommittedWisdom *Ref     `json:"committed_wisdom,omitempty"`
	EvolvableSoul   *ItemRef `json:"evolvable_soul,omitempty"`
}

// KnownRecipe is a recipe the player has unlocked, with the skills it was
// unlocked through. Books carry no skills.
type KnownRecipe struct {
	ID     string `json:"id"`
	Skills []Ref  `json:"skills,omitempty"`
}

// UserData is the progress document served at /user_data.
type UserData struct {
	Items   []ItemRef     `json:"items"`
	Skills  []KnownSkill  `json:"skills"`
	Recipes []KnownRecipe `json:"recipes"`
}

// Normalize replaces nil slices with empty ones so the document always
// encodes as arrays.
func (u *UserData) Normalize() {
	if u.Items == nil {
		u.Items = []ItemRef{}
	}
	if u.Skills == nil {
		u.Skills = []KnownSkill{}
	}
	if u.Recipes == nil {
		u.Recipes = []KnownRecipe{}
	}
}

// SkillLevelRequest is the PATCH /skill/{id} body.
type SkillLevelRequest struct {
	Level *int `json:"level" validate:"required,min=0"`
}
