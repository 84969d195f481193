package http

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/ridemetrics/internal/core/domain"
	"github.com/samirrijal/ridemetrics/internal/core/tripmetrics"
)

// buildSchema creates the GraphQL schema wired to the ride service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	metricsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "TripMetrics",
		Fields: graphql.Fields{
			"totalDistance":  &graphql.Field{Type: graphql.Float},
			"totalTimeHours": &graphql.Field{Type: graphql.Float},
			"averageSpeed":   &graphql.Field{Type: graphql.Float},
		},
	})

	boundsType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Bounds",
		Fields: graphql.Fields{
			"min_lat": &graphql.Field{Type: graphql.Float},
			"min_lng": &graphql.Field{Type: graphql.Float},
			"max_lat": &graphql.Field{Type: graphql.Float},
			"max_lng": &graphql.Field{Type: graphql.Float},
		},
	})

	warningType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OrderingWarning",
		Fields: graphql.Fields{
			"index":         &graphql.Field{Type: graphql.Int},
			"delta_seconds": &graphql.Field{Type: graphql.Float},
		},
	})

	summaryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "RideSummary",
		Fields: graphql.Fields{
			"rental_id":     &graphql.Field{Type: graphql.String},
			"metrics":       &graphql.Field{Type: metricsType},
			"point_count":   &graphql.Field{Type: graphql.Int},
			"started_at":    &graphql.Field{Type: graphql.DateTime},
			"ended_at":      &graphql.Field{Type: graphql.DateTime},
			"start_geohash": &graphql.Field{Type: graphql.String},
			"end_geohash":   &graphql.Field{Type: graphql.String},
			"bounds":        &graphql.Field{Type: boundsType},
			"warnings":      &graphql.Field{Type: graphql.NewList(warningType)},
			"computed_at":   &graphql.Field{Type: graphql.DateTime},
		},
	})

	recordType := graphql.NewObject(graphql.ObjectConfig{
		Name: "LocationRecord",
		Fields: graphql.Fields{
			"timestamp":   &graphql.Field{Type: graphql.String},
			"coordinates": &graphql.Field{Type: graphql.String},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"rideSummary": &graphql.Field{
				Type:        summaryType,
				Description: "Distance, duration and average speed of a rental; null when it has fewer than two fixes",
				Args: graphql.FieldConfigArgument{
					"rentalId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["rentalId"].(string)
					summary, err := deps.Rides.Summary(p.Context, id)
					if errors.Is(err, tripmetrics.ErrInsufficientData) {
						return nil, nil
					}
					if err != nil {
						return nil, err
					}
					return summary, nil
				},
			},
			"coordinates": &graphql.Field{
				Type:        graphql.NewList(recordType),
				Description: "Raw GPS fixes of a rental in recorded order",
				Args: graphql.FieldConfigArgument{
					"rentalId": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					id := p.Args["rentalId"].(string)
					records, err := deps.Rides.Coordinates(p.Context, id)
					if errors.Is(err, domain.ErrRentalNotFound) {
						return []domain.LocationRecord{}, nil
					}
					return records, err
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}
		if req.Query == "" {
			return errBadRequest(c, "query is required")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		c.Set(fiber.HeaderCacheControl, "no-store")
		return c.JSON(result)
	}
}
