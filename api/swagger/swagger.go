package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Recruit Booking API",
        "description": "Interview slot booking for phased recruiting events",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "tags": [
        {"name": "Auth", "description": "Signup and login"},
        {"name": "Events", "description": "Events, slots and booking phases"},
        {"name": "Bookings", "description": "Interview slot bookings"}
    ],
    "paths": {
        "/auth/login": {
            "post": {
                "tags": ["Auth"],
                "summary": "Authenticate a user",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Invalid credentials"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/auth/signup": {
            "post": {
                "tags": ["Auth"],
                "summary": "Create a student account",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Email already registered"},
                    "429": {"description": "Rate limited"}
                }
            }
        },
        "/events": {
            "get": {
                "tags": ["Events"],
                "summary": "List events",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events/{id}/slots": {
            "get": {
                "tags": ["Events"],
                "summary": "List event slots",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/events/{id}/phase": {
            "get": {
                "tags": ["Events"],
                "summary": "Get current booking phase",
                "responses": {"200": {"description": "OK"}}
            },
            "put": {
                "tags": ["Events"],
                "summary": "Override booking phase (admin)",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/events/{id}/roster": {
            "get": {
                "tags": ["Events"],
                "summary": "Download the booking roster as CSV (admin)",
                "produces": ["text/csv"],
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Forbidden"},
                    "404": {"description": "Event not found"}
                }
            }
        },
        "/bookings": {
            "post": {
                "tags": ["Bookings"],
                "summary": "Book an interview slot",
                "responses": {
                    "201": {"description": "Created"},
                    "409": {"description": "Closed, duplicate, quota exceeded or slot full"}
                }
            },
            "get": {
                "tags": ["Bookings"],
                "summary": "List own bookings",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/bookings/{id}": {
            "delete": {
                "tags": ["Bookings"],
                "summary": "Cancel a booking",
                "responses": {
                    "200": {"description": "OK"},
                    "403": {"description": "Not owner"},
                    "409": {"description": "Already cancelled"}
                }
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{"http"},
	Title:            "Recruit Booking API",
	Description:      "Interview slot booking for phased recruiting events",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
