package client

import (
	"context"

	"github.com/starford/hours/internal/models"
)

// Query documents, one per catalog view.
var (
	ItemsQuery = Document{Name: "Items", Query: `query Items {
  item {
    id name known
    edge forge grail heart knock lantern moon moth nectar rose scale sky winter
    aspects { id }
  }
}`}

	AspectsQuery = Document{Name: "Aspects", Query: `query Aspects {
  aspect { id assistants { id } }
}`}

	PrincipleQuery = Document{Name: "Principle", Query: `query Principle {
  principle { id }
}`}

	SkillsQuery = Document{Name: "Skills", Query: `query Skills {
  skill {
    id name level
    primary_principle { id }
    secondary_principle { id }
    wisdoms { id }
  }
}`}

	AssistantQuery = Document{Name: "Assistant", Query: `query Assistant {
  assistant {
    id season
    base_principles { principle count }
    special_aspects { id }
  }
}`}

	WorkstationQuery = Document{Name: "Workstation", Query: `query Workstation {
  workstation {
    id
    principles { id }
    workstation_type { id }
    workstation_slots { id name index accepts { id } }
    evolves { id }
  }
}`}

	RecipesQuery = Document{Name: "Recipes", Query: `query Recipes {
  recipe {
    id principle principle_amount
    source_aspect { id }
    source_item { id name }
    product { id name }
    crafting_action
    skills { id }
  }
}`}

	ProductsQuery = Document{Name: "Products", Query: `query Products {
  item {
    id name
    aspects { id }
    source_recipe {
      id principle principle_amount
      source_item { id }
      source_aspect { id }
    }
  }
}`}
)

// Product is an item with the recipes that make it.
type Product struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Aspects      []models.Ref    `json:"aspects"`
	SourceRecipe []models.Recipe `json:"source_recipe"`
}

// Items fetches every item.
func (c *Client) Items(ctx context.Context) ([]models.Item, error) {
	var out struct {
		Item []models.Item `json:"item"`
	}
	err := c.Query(ctx, ItemsQuery, nil, &out)
	return out.Item, err
}

// Aspects fetches every aspect.
func (c *Client) Aspects(ctx context.Context) ([]models.Aspect, error) {
	var out struct {
		Aspect []models.Aspect `json:"aspect"`
	}
	err := c.Query(ctx, AspectsQuery, nil, &out)
	return out.Aspect, err
}

// Principles fetches the principle list.
func (c *Client) Principles(ctx context.Context) ([]models.PrincipleRef, error) {
	var out struct {
		Principle []models.PrincipleRef `json:"principle"`
	}
	err := c.Query(ctx, PrincipleQuery, nil, &out)
	return out.Principle, err
}

// Skills fetches every skill with the stored levels.
func (c *Client) Skills(ctx context.Context) ([]models.Skill, error) {
	var out struct {
		Skill []models.Skill `json:"skill"`
	}
	err := c.Query(ctx, SkillsQuery, nil, &out)
	return out.Skill, err
}

// Assistants fetches every assistant.
func (c *Client) Assistants(ctx context.Context) ([]models.Assistant, error) {
	var out struct {
		Assistant []models.Assistant `json:"assistant"`
	}
	err := c.Query(ctx, AssistantQuery, nil, &out)
	return out.Assistant, err
}

// Workstations fetches every workstation, slots in index order.
func (c *Client) Workstations(ctx context.Context) ([]models.Workstation, error) {
	var out struct {
		Workstation []models.Workstation `json:"workstation"`
	}
	err := c.Query(ctx, WorkstationQuery, nil, &out)
	return out.Workstation, err
}

// Recipes fetches every recipe.
func (c *Client) Recipes(ctx context.Context) ([]models.Recipe, error) {
	var out struct {
		Recipe []models.Recipe `json:"recipe"`
	}
	err := c.Query(ctx, RecipesQuery, nil, &out)
	return out.Recipe, err
}

// Products fetches items with their source recipes.
func (c *Client) Products(ctx context.Context) ([]Product, error) {
	var out struct {
		Item []Product `json:"item"`
	}
	err := c.Query(ctx, ProductsQuery, nil, &out)
	return out.Item, err
}
