package vulkan

import (
	"fmt"
	"math"
	"runtime"
	"unsafe"

	"github.com/go-gl/glfw/v3.3/glfw"
	vk "github.com/goki/vulkan"

	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/engine/graphics"
)

// Device is the Vulkan implementation of graphics.Device. It owns the
// instance, surface, logical device, swapchain and the upload/submission
// machinery.
type Device struct {
	context      *VulkanContext
	immediate    *ImmediateCommands
	staging      *StagingDevice
	destroyQueue *graphics.DestroyQueue
	renderPasses *renderPassCache
	descriptors  *descriptorAllocator
	pipelines    *graphics.PipelineCache
	swapchain    *VulkanSwapchain
	config       graphics.DeviceConfig

	window *glfw.Window

	renderPipelines  []*vulkanRenderPipeline
	computePipelines []*vulkanComputePipeline
	framebuffers     []*vulkanFramebuffer
}

// Querier enumerates Vulkan adapters and creates devices against a window
// surface.
type Querier struct {
	AppName string
	Window  *glfw.Window
}

func (q *Querier) QueryDevices() ([]graphics.HWDeviceDesc, error) {
	instance, _, err := createInstance(q.AppName, false, q.Window)
	if err != nil {
		return nil, err
	}
	defer vk.DestroyInstance(instance, nil)

	physicalDevices, err := EnumeratePhysicalDevices(instance)
	if err != nil {
		return nil, err
	}

	descs := make([]graphics.HWDeviceDesc, 0, len(physicalDevices))
	for i, pd := range physicalDevices {
		var properties vk.PhysicalDeviceProperties
		vk.GetPhysicalDeviceProperties(pd, &properties)
		properties.Deref()

		end := FindFirstZeroInByteArray(properties.DeviceName[:])
		descs = append(descs, graphics.HWDeviceDesc{
			Name:    string(properties.DeviceName[:end]),
			Type:    hwDeviceType(properties.DeviceType),
			Backend: graphics.BackendVulkan,
			Index:   uint32(i),
		})
	}
	return descs, nil
}

func (q *Querier) Create(desc graphics.HWDeviceDesc, config graphics.DeviceConfig) (graphics.Device, error) {
	if q.Window == nil {
		return nil, graphics.NewResult(graphics.RuntimeError, "no context set")
	}
	return NewDevice(q.AppName, q.Window, config, int32(desc.Index))
}

// NewDevice brings up the whole backend: instance, debug layer, surface,
// logical device, swapchain, immediate commands and the staging device.
func NewDevice(appName string, window *glfw.Window, config graphics.DeviceConfig, preferredAdapter int32) (*Device, error) {
	width, height := window.GetFramebufferSize()

	device := &Device{
		context: &VulkanContext{
			FramebufferWidth:  uint32(width),
			FramebufferHeight: uint32(height),
			Allocator:         nil,
		},
		pipelines: graphics.NewPipelineCache(),
		config:    config,
		window:    window,
	}

	instance, messenger, err := createInstance(appName, config.EnableDebugLayer, window)
	if err != nil {
		return nil, err
	}
	device.context.Instance = instance
	device.context.debugMessenger = messenger

	core.LogDebug("Creating Vulkan surface...")
	surface, err := window.CreateWindowSurface(instance, nil)
	if err != nil {
		core.LogError("Vulkan surface creation failed: %s", err)
		return nil, graphics.NewResult(graphics.RuntimeError, "failed to create window surface: %s", err)
	}
	device.context.Surface = vk.SurfaceFromPointer(surface)

	if err := DeviceCreate(device.context, preferredAdapter); err != nil {
		return nil, err
	}

	immediate, err := NewImmediateCommands(device.context, uint32(device.context.Device.GraphicsQueueIndex), device.context.Device.GraphicsQueue)
	if err != nil {
		return nil, err
	}
	device.immediate = immediate
	device.destroyQueue = graphics.NewDestroyQueue(immediate)

	staging, err := NewStagingDevice(device.context, immediate, DefaultStagingBufferSize)
	if err != nil {
		return nil, err
	}
	device.staging = staging

	device.renderPasses = newRenderPassCache(device.context)

	descriptors, err := newDescriptorAllocator(device.context)
	if err != nil {
		return nil, err
	}
	device.descriptors = descriptors

	swapchain, err := SwapchainCreate(device, device.context.FramebufferWidth, device.context.FramebufferHeight)
	if err != nil {
		return nil, err
	}
	device.swapchain = swapchain
	device.context.Swapchain = swapchain

	core.LogInfo("Vulkan device initialized.")
	return device, nil
}

func (d *Device) BackendType() graphics.BackendType {
	return graphics.BackendVulkan
}

func (d *Device) CreateCommandQueue(desc graphics.CommandQueueDesc) (graphics.CommandQueue, error) {
	return &Queue{device: d, label: desc.Label}, nil
}

func (d *Device) CreateBuffer(desc graphics.BufferDesc) (graphics.Buffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newVulkanBuffer(d, desc)
}

func (d *Device) CreateTexture(desc graphics.TextureDesc) (graphics.Texture, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newVulkanTexture(d, desc)
}

func (d *Device) CreateShaderModule(desc graphics.ShaderModuleDesc) (graphics.ShaderModule, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newVulkanShaderModule(d, desc)
}

func (d *Device) CreateShaderStages(desc graphics.ShaderStagesDesc) (graphics.ShaderStages, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	stages := &vulkanShaderStages{label: desc.Label}
	var err error
	if stages.vertex, err = asVulkanModule(desc.Vertex); err != nil {
		return nil, err
	}
	if stages.fragment, err = asVulkanModule(desc.Fragment); err != nil {
		return nil, err
	}
	if stages.compute, err = asVulkanModule(desc.Compute); err != nil {
		return nil, err
	}
	return stages, nil
}

func (d *Device) CreateRenderPipeline(desc graphics.RenderPipelineDesc) (graphics.RenderPipelineState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.pipelines.RenderPipeline(desc, func() (graphics.RenderPipelineState, error) {
		pso, err := newVulkanRenderPipeline(d, desc)
		if err != nil {
			return nil, err
		}
		d.renderPipelines = append(d.renderPipelines, pso)
		return pso, nil
	})
}

func (d *Device) CreateComputePipeline(desc graphics.ComputePipelineDesc) (graphics.ComputePipelineState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return d.pipelines.ComputePipeline(desc, func() (graphics.ComputePipelineState, error) {
		pso, err := newVulkanComputePipeline(d, desc)
		if err != nil {
			return nil, err
		}
		d.computePipelines = append(d.computePipelines, pso)
		return pso, nil
	})
}

func (d *Device) CreateSamplerState(desc graphics.SamplerDesc) (graphics.SamplerState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newVulkanSamplerState(d, desc)
}

func (d *Device) CreateDepthStencilState(desc graphics.DepthStencilDesc) (graphics.DepthStencilState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return &vulkanDepthStencilState{desc: desc}, nil
}

func (d *Device) CreateVertexInputState(desc graphics.VertexInputDesc) (graphics.VertexInputState, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	return newVulkanVertexInputState(desc), nil
}

func (d *Device) CreateFramebuffer(desc graphics.FramebufferDesc) (graphics.Framebuffer, error) {
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	fb, err := newVulkanFramebuffer(d, desc)
	if err != nil {
		return nil, err
	}
	d.framebuffers = append(d.framebuffers, fb)
	return fb, nil
}

// Resize records a framebuffer size change. The swapchain is recreated at
// the start of the next frame, never mid-frame.
func (d *Device) Resize(width, height uint32) {
	d.context.FramebufferWidth = width
	d.context.FramebufferHeight = height
	d.context.FramebufferSizeGeneration++
}

// CurrentSurfaceTextures acquires the next swapchain image and returns the
// drawable surfaces. A zero-value return (nil Color) means this frame has no
// image and the caller should skip rendering.
func (d *Device) CurrentSurfaceTextures() graphics.SurfaceTextures {
	if d.context.FramebufferSizeGeneration != d.context.FramebufferSizeLastGeneration {
		if d.context.FramebufferWidth == 0 || d.context.FramebufferHeight == 0 {
			// Minimized; nothing to draw.
			return graphics.SurfaceTextures{}
		}
		d.context.RecreatingSwapchain = true
		swapchain, err := d.swapchain.SwapchainRecreate(d, d.context.FramebufferWidth, d.context.FramebufferHeight)
		d.context.RecreatingSwapchain = false
		if err != nil {
			core.LogError("swapchain recreation failed: %s", err.Error())
			return graphics.SurfaceTextures{}
		}
		// Dangling per-renderpass framebuffers reference the old views.
		for _, fb := range d.framebuffers {
			fb.destroy()
		}
		d.swapchain = swapchain
		d.context.Swapchain = swapchain
		d.context.FramebufferSizeLastGeneration = d.context.FramebufferSizeGeneration
	}

	index, ok := d.swapchain.SwapchainAcquireNextImageIndex(d, math.MaxUint64)
	if !ok {
		d.context.FramebufferSizeGeneration++
		return graphics.SurfaceTextures{}
	}

	return graphics.SurfaceTextures{
		Color: d.swapchain.ColorTextures[index],
		Depth: d.swapchain.DepthTexture,
	}
}

func (d *Device) Destroy() {
	vk.DeviceWaitIdle(d.context.Device.LogicalDevice)
	d.immediate.WaitAll()
	d.destroyQueue.Drain()

	for _, fb := range d.framebuffers {
		fb.destroy()
	}
	for _, pso := range d.renderPipelines {
		pso.destroy()
	}
	for _, pso := range d.computePipelines {
		pso.destroy()
	}

	d.swapchain.SwapchainDestroy(d)
	d.descriptors.destroy()
	d.renderPasses.destroy()
	d.staging.Destroy()
	d.immediate.Destroy()

	DeviceDestroy(d.context)

	vk.DestroySurface(d.context.Instance, d.context.Surface, d.context.Allocator)
	if d.context.debugMessenger != vk.NullDebugReportCallback {
		vk.DestroyDebugReportCallback(d.context.Instance, d.context.debugMessenger, d.context.Allocator)
	}
	vk.DestroyInstance(d.context.Instance, d.context.Allocator)
	core.LogInfo("Vulkan device destroyed.")
}

func createInstance(appName string, debug bool, window *glfw.Window) (vk.Instance, vk.DebugReportCallback, error) {
	procAddr := glfw.GetVulkanGetInstanceProcAddress()
	if procAddr == nil {
		return nil, vk.NullDebugReportCallback, graphics.NewResult(graphics.RuntimeError, "vkGetInstanceProcAddr is nil; is the Vulkan loader installed?")
	}
	vk.SetGetInstanceProcAddr(procAddr)

	if err := vk.Init(); err != nil {
		core.LogError("failed to initialize vk: %s", err)
		return nil, vk.NullDebugReportCallback, graphics.NewResult(graphics.RuntimeError, "vulkan loader initialization failed: %s", err)
	}

	appInfo := &vk.ApplicationInfo{
		SType:              vk.StructureTypeApplicationInfo,
		ApiVersion:         uint32(vk.MakeVersion(1, 1, 0)),
		ApplicationVersion: uint32(vk.MakeVersion(1, 0, 0)),
		PApplicationName:   VulkanSafeString(appName),
		PEngineName:        VulkanSafeString("Prism Engine"),
	}

	createInfo := vk.InstanceCreateInfo{
		SType:            vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: appInfo,
	}

	requiredExtensions := []string{"VK_KHR_surface"}
	if window != nil {
		requiredExtensions = append(requiredExtensions, window.GetRequiredInstanceExtensions()...)
	}

	if runtime.GOOS == "darwin" {
		requiredExtensions = append(requiredExtensions,
			"VK_KHR_portability_enumeration",
			"VK_KHR_get_physical_device_properties2",
		)
	}

	if debug {
		requiredExtensions = append(requiredExtensions, vk.ExtDebugUtilsExtensionName, vk.ExtDebugReportExtensionName)
	}

	createInfo.EnabledExtensionCount = uint32(len(requiredExtensions))
	createInfo.PpEnabledExtensionNames = VulkanSafeStrings(requiredExtensions)

	var requiredLayers []string
	if debug {
		core.LogInfo("Validation layers enabled. Enumerating...")
		requiredLayers = []string{"VK_LAYER_KHRONOS_validation"}

		if runtime.GOOS == "darwin" {
			createInfo.Flags |= 1
		}

		var availableLayerCount uint32
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, nil); res != vk.Success {
			return nil, vk.NullDebugReportCallback, resultFromVk(res, "vkEnumerateInstanceLayerProperties")
		}
		availableLayers := make([]vk.LayerProperties, availableLayerCount)
		if res := vk.EnumerateInstanceLayerProperties(&availableLayerCount, availableLayers); res != vk.Success {
			return nil, vk.NullDebugReportCallback, resultFromVk(res, "vkEnumerateInstanceLayerProperties")
		}

		for i := range requiredLayers {
			found := false
			for j := range availableLayers {
				availableLayers[j].Deref()
				end := FindFirstZeroInByteArray(availableLayers[j].LayerName[:])
				if requiredLayers[i] == vk.ToString(availableLayers[j].LayerName[:end+1]) {
					found = true
					break
				}
			}
			if !found {
				err := fmt.Errorf("required validation layer is missing: %s", requiredLayers[i])
				core.LogError(err.Error())
				return nil, vk.NullDebugReportCallback, err
			}
		}
		core.LogInfo("All required validation layers are present.")
	}

	createInfo.EnabledLayerCount = uint32(len(requiredLayers))
	createInfo.PpEnabledLayerNames = VulkanSafeStrings(requiredLayers)

	var instance vk.Instance
	if res := vk.CreateInstance(&createInfo, nil, &instance); res != vk.Success {
		return nil, vk.NullDebugReportCallback, resultFromVk(res, "vkCreateInstance")
	}
	if err := vk.InitInstance(instance); err != nil {
		core.LogError(err.Error())
		return nil, vk.NullDebugReportCallback, err
	}
	core.LogInfo("Vulkan Instance created.")

	messenger := vk.NullDebugReportCallback
	if debug {
		debugCreateInfo := vk.DebugReportCallbackCreateInfo{
			SType:       vk.StructureTypeDebugReportCallbackCreateInfo,
			Flags:       vk.DebugReportFlags(vk.DebugReportErrorBit | vk.DebugReportWarningBit | vk.DebugReportPerformanceWarningBit),
			PfnCallback: dbgCallbackFunc,
		}
		var dbg vk.DebugReportCallback
		if err := vk.Error(vk.CreateDebugReportCallback(instance, &debugCreateInfo, nil, &dbg)); err != nil {
			core.LogError("vk.CreateDebugReportCallback failed with %s", err)
			return nil, vk.NullDebugReportCallback, err
		}
		messenger = dbg
		core.LogDebug("Vulkan debugger created.")
	}

	return instance, messenger, nil
}

func hwDeviceType(t vk.PhysicalDeviceType) graphics.HWDeviceType {
	switch t {
	case vk.PhysicalDeviceTypeDiscreteGpu:
		return graphics.HWDeviceTypeDiscrete
	case vk.PhysicalDeviceTypeIntegratedGpu:
		return graphics.HWDeviceTypeIntegrated
	case vk.PhysicalDeviceTypeCpu:
		return graphics.HWDeviceTypeSoftware
	}
	return graphics.HWDeviceTypeUnknown
}

func asVulkanModule(m graphics.ShaderModule) (*vulkanShaderModule, error) {
	if m == nil {
		return nil, nil
	}
	vm, ok := m.(*vulkanShaderModule)
	if !ok {
		return nil, graphics.NewResult(graphics.ArgumentInvalid, "shader module was not created by this device")
	}
	return vm, nil
}

func dbgCallbackFunc(flags vk.DebugReportFlags, objectType vk.DebugReportObjectType, object uint64, location uint64, messageCode int32, pLayerPrefix string, pMessage string, pUserData unsafe.Pointer) vk.Bool32 {
	switch {
	case flags&vk.DebugReportFlags(vk.DebugReportErrorBit) != 0:
		core.LogError("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportWarningBit) != 0:
		core.LogWarn("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	case flags&vk.DebugReportFlags(vk.DebugReportPerformanceWarningBit) != 0:
		core.LogWarn("PERFORMANCE: [%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	default:
		core.LogInfo("[%s] Code %d : %s", pLayerPrefix, messageCode, pMessage)
	}
	return vk.Bool32(vk.False)
}
