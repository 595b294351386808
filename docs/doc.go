// Package docs holds the OpenAPI spec generated by swag init.
package docs
