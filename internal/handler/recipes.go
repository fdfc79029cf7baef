package handler

import (
	"net/http"
	"strings"

	"freshscan/internal/logger"
	"freshscan/internal/service"
	"freshscan/internal/service/recipe"
	"freshscan/internal/service/session"
)

// RecipesHandler proxies a recipe lookup. Query: ingredients (comma separated,
// defaults to the session's fresh items), number.
func RecipesHandler(manager *service.Manager, logger *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var ingredients []string
		for _, ing := range strings.Split(r.URL.Query().Get("ingredients"), ",") {
			if ing = strings.TrimSpace(ing); ing != "" {
				ingredients = append(ingredients, ing)
			}
		}

		number, err := intParam(r, "number", recipe.DefaultNumber)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		body, err := manager.Recipes(r.Context(), session.IDFromContext(r.Context()), ingredients, number)
		if err != nil {
			writeError(w, logger, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(body)
	}
}
