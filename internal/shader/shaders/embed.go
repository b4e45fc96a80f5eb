// Package shaders provides embedded GLSL shader sources.
package shaders

import _ "embed"

// LightVertexShader is shared by both lit programs.
//
//go:embed light.vert
var LightVertexShader string

// UVLightFragmentShader shades texture unit 0 with a directional light.
//
//go:embed uv_light.frag
var UVLightFragmentShader string

// MatLightFragmentShader shades the buffer's material colour.
//
//go:embed mat_light.frag
var MatLightFragmentShader string
