// Package gpu reports NVIDIA GPU health: VRAM usage, temperature,
// utilisation, power draw and per-process GPU memory. Data comes from
// the nvidia-smi CLI, which ships with every NVIDIA driver, so no extra
// runtime dependency is needed. Hosts without the CLI simply report no
// GPUs.
package gpu
