// Package renderer draws terrain components, their material batches and the
// decals projected onto them with OpenGL.
package renderer

import (
	"fmt"
	"image/color"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-terrain/internal/engine/debug"
	"github.com/Faultbox/midgard-terrain/internal/engine/decal"
	"github.com/Faultbox/midgard-terrain/internal/engine/gpu"
	"github.com/Faultbox/midgard-terrain/internal/engine/material"
	"github.com/Faultbox/midgard-terrain/internal/engine/shader"
	"github.com/Faultbox/midgard-terrain/internal/engine/terrain"
	"github.com/Faultbox/midgard-terrain/internal/engine/texture"
	"github.com/Faultbox/midgard-terrain/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
	VSync  bool
}

// Renderer handles all OpenGL rendering.
type Renderer struct {
	config Config

	backend  *GLBackend
	programs *shader.MaterialPrograms
	cache    *material.ProgramCache

	terrain   *terrain.Terrain
	projector *decal.Projector
	library   *texture.Library

	vaos     map[*terrain.Component]*componentVAO
	textures map[string]uint32
	weights  []uint32

	decalProgram  uint32
	decalUniforms *shader.Uniforms
	decalTexture  uint32

	lines *lineBatch

	// Per-frame draw options.
	Wireframe  bool
	ShowBounds bool
	LightDir   mgl32.Vec3
	LayerScale float32
	MorphAlpha [5]float32
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config:     cfg,
		backend:    NewGLBackend(),
		programs:   shader.NewMaterialPrograms(),
		vaos:       make(map[*terrain.Component]*componentVAO),
		textures:   make(map[string]uint32),
		LightDir:   mgl32.Vec3{-0.4, -0.4, -1}.Normalize(),
		LayerScale: 4,
	}

	// Initialize OpenGL
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	version := gl.GoStr(gl.GetString(gl.VERSION))
	rendererName := gl.GoStr(gl.GetString(gl.RENDERER))
	logger.Info("OpenGL initialized",
		zap.String("version", version),
		zap.String("renderer", rendererName),
	)

	gl.Enable(gl.DEPTH_TEST)
	gl.DepthFunc(gl.LEQUAL)
	gl.Enable(gl.CULL_FACE)
	gl.FrontFace(gl.CCW)
	gl.ClearColor(0.45, 0.6, 0.8, 1.0)

	var err error
	r.decalProgram, err = shader.CompileProgram(decalVertexShader, decalFragmentShader)
	if err != nil {
		return nil, fmt.Errorf("failed to create decal program: %w", err)
	}
	r.decalUniforms = shader.NewUniforms(r.decalProgram)

	r.lines, err = newLineBatch()
	if err != nil {
		return nil, fmt.Errorf("failed to create line batch: %w", err)
	}
	r.decalTexture = uploadTexture(texture.Checker(8,
		color.RGBA{255, 200, 40, 200}, color.RGBA{200, 60, 20, 200}), false)

	return r, nil
}

// Backend returns the GPU backend terrain buffers must be allocated with.
func (r *Renderer) Backend() gpu.Backend { return r.backend }

// SetTerrain attaches the terrain, the decal projector drawing onto it and
// the library its material textures come from.
func (r *Renderer) SetTerrain(t *terrain.Terrain, p *decal.Projector, lib *texture.Library) {
	r.releaseTerrainState()
	r.terrain = t
	r.projector = p
	r.library = lib
	r.cache = material.NewProgramCache(t.Materials, r.programs)
	r.RefreshWeights()
}

// RefreshWeights uploads the terrain's material weights. Call it on the GL
// thread after the terrain recached its weight maps.
func (r *Renderer) RefreshWeights() {
	deleteTextures(r.weights)
	r.weights = r.weights[:0]

	hf := r.terrain.HeightField()
	for _, img := range material.PackWeightTextures(r.terrain, hf.SizeX(), hf.SizeY()) {
		r.weights = append(r.weights, uploadTexture(img, false))
	}
	logger.Debug("weight textures uploaded", zap.Int("count", len(r.weights)))
}

// Close cleans up renderer resources.
func (r *Renderer) Close() error {
	logger.Info("closing renderer")
	r.releaseTerrainState()
	r.lines.close()
	gl.DeleteTextures(1, &r.decalTexture)
	if r.decalProgram != 0 {
		gl.DeleteProgram(r.decalProgram)
	}
	return r.backend.Close()
}

func (r *Renderer) releaseTerrainState() {
	for c, v := range r.vaos {
		v.delete()
		delete(r.vaos, c)
	}
	for name, id := range r.textures {
		gl.DeleteTextures(1, &id)
		delete(r.textures, name)
	}
	deleteTextures(r.weights)
	r.weights = nil
	if r.cache != nil {
		r.cache.Clear()
	}
}

// Resize handles window resize.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	logger.Debug("renderer resized",
		zap.Int("width", width),
		zap.Int("height", height),
	)
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)
}

// End finishes the current frame.
func (r *Renderer) End() {
	gl.BindVertexArray(0)
	gl.UseProgram(0)
}

// DrawStats counts the work of one Draw call.
type DrawStats struct {
	Components int
	Batches    int
	Triangles  int
	Decals     int
}

// Draw renders the attached terrain and its decals.
func (r *Renderer) Draw(viewProj mgl32.Mat4) DrawStats {
	var stats DrawStats
	if r.terrain == nil {
		return stats
	}

	if r.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.LINE)
	}
	for _, c := range r.terrain.Components() {
		ds := c.DrawState()
		if ds.Triangles == 0 || ds.VertexBuffer == gpu.InvalidBuffer {
			continue
		}
		vao := r.componentVAO(c, ds)
		stats.Components++
		for _, b := range ds.Batches {
			if b.NumTriangles == 0 {
				continue
			}
			if r.drawBatch(c, ds, vao, b, viewProj) {
				stats.Batches++
				stats.Triangles += b.NumTriangles
			}
		}
	}
	if r.Wireframe {
		gl.PolygonMode(gl.FRONT_AND_BACK, gl.FILL)
	}

	if r.projector != nil {
		stats.Decals = r.drawDecals(viewProj)
	}
	if r.ShowBounds {
		r.lines.draw(debug.ComponentLines(r.terrain, 0.05), viewProj, mgl32.Vec4{1, 1, 0, 1})
	}
	return stats
}

func (r *Renderer) drawBatch(c *terrain.Component, ds terrain.DrawState, vao *componentVAO, b terrain.BatchRange, viewProj mgl32.Mat4) bool {
	prog, cm := r.cache.Program(ds.Masks[b.Batch])
	if prog == material.InvalidProgram {
		return false
	}
	gl.UseProgram(uint32(prog))
	u := r.programs.Uniforms(prog)
	r.setVertexUniforms(u, c, viewProj)
	gl.Uniform3fv(u.Location("u_lightDir"), 1, &r.LightDir[0])

	unit := int32(0)
	for _, name := range cm.Textures {
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, r.materialTexture(name))
		gl.Uniform1i(u.Location(material.TextureUniform(name)), unit)
		unit++
	}
	for _, w := range cm.WeightTextures {
		if w >= len(r.weights) {
			continue
		}
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, r.weights[w])
		gl.Uniform1i(u.Location(material.WeightUniform(w)), unit)
		unit++
	}

	vao.bind(ds.IndexBuffer)
	gl.DrawElements(gl.TRIANGLES, int32(b.NumTriangles*3), indexType(ds.IndexSize),
		gl.PtrOffset(b.FirstIndex*ds.IndexSize))
	return true
}

func (r *Renderer) setVertexUniforms(u *shader.Uniforms, c *terrain.Component, viewProj mgl32.Mat4) {
	hf := r.terrain.HeightField()
	localToWorld := r.terrain.LocalToWorld()
	gl.UniformMatrix4fv(u.Location("u_localToWorld"), 1, false, &localToWorld[0])
	gl.UniformMatrix4fv(u.Location("u_viewProj"), 1, false, &viewProj[0])
	gl.Uniform2f(u.Location("u_sectionBase"), float32(c.SectionX), float32(c.SectionY))
	gl.Uniform2f(u.Location("u_terrainSize"), float32(hf.PatchesX), float32(hf.PatchesY))
	gl.Uniform1f(u.Location("u_layerScale"), r.LayerScale)
	morphing := int32(0)
	if r.terrain.MorphMode() != terrain.MorphNone {
		morphing = 1
	}
	gl.Uniform1i(u.Location("u_morphing"), morphing)
	gl.Uniform1fv(u.Location("u_morphAlpha"), int32(len(r.MorphAlpha)), &r.MorphAlpha[0])
}

func (r *Renderer) drawDecals(viewProj mgl32.Mat4) int {
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
	gl.Enable(gl.POLYGON_OFFSET_FILL)
	gl.PolygonOffset(-1, -1)
	gl.DepthMask(false)
	defer func() {
		gl.DepthMask(true)
		gl.Disable(gl.POLYGON_OFFSET_FILL)
		gl.Disable(gl.BLEND)
	}()

	gl.UseProgram(r.decalProgram)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.decalTexture)
	gl.Uniform1i(r.decalUniforms.Location("u_decal"), 0)

	drawn := 0
	for _, c := range r.terrain.Components() {
		ds := c.DrawState()
		if ds.VertexBuffer == gpu.InvalidBuffer {
			continue
		}
		for _, it := range r.projector.ComponentInteractions(c) {
			dd := it.DrawState()
			if dd.Triangles == 0 || dd.IndexBuffer == gpu.InvalidBuffer {
				continue
			}
			r.setVertexUniforms(r.decalUniforms, c, viewProj)
			decalViewProj := it.Decal.Projection().Mul4(it.Decal.View())
			gl.UniformMatrix4fv(r.decalUniforms.Location("u_decalViewProj"), 1, false, &decalViewProj[0])

			vao := r.componentVAO(c, ds)
			vao.bind(dd.IndexBuffer)
			gl.DrawElements(gl.TRIANGLES, int32(dd.Triangles*3), indexType(dd.IndexSize), nil)
			drawn++
		}
	}
	return drawn
}

// materialTexture returns the GL texture of a library image, uploading it on first use.
func (r *Renderer) materialTexture(name string) uint32 {
	if id, ok := r.textures[name]; ok {
		return id
	}
	id := uploadTexture(r.library.Get(name), true)
	r.textures[name] = id
	return id
}

func indexType(size int) uint32 {
	if size == 2 {
		return gl.UNSIGNED_SHORT
	}
	return gl.UNSIGNED_INT
}

func deleteTextures(ids []uint32) {
	if len(ids) > 0 {
		gl.DeleteTextures(int32(len(ids)), &ids[0])
	}
}
