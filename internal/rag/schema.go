package rag

import "github.com/abhisek/eduassist/internal/llm"

// AnswerSchema defines the JSON schema for answers grounded in material.
var AnswerSchema = &llm.Schema{
	Name:        "material-answer",
	Description: "An answer to the student's question based on the uploaded material",
	Definition: map[string]any{
		"type": "object",
		"properties": map[string]any{
			"answer": map[string]any{
				"type":        "string",
				"description": "The answer, or a statement that the material does not cover the question",
			},
		},
		"required":             []any{"answer"},
		"additionalProperties": false,
	},
}
