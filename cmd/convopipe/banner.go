package main

const banner = `
 ██████╗ ██████╗ ███╗   ██╗██╗   ██╗ ██████╗ ██████╗ ██╗██████╗ ███████╗
██╔════╝██╔═══██╗████╗  ██║██║   ██║██╔═══██╗██╔══██╗██║██╔══██╗██╔════╝
██║     ██║   ██║██╔██╗ ██║██║   ██║██║   ██║██████╔╝██║██████╔╝█████╗
██║     ██║   ██║██║╚██╗██║╚██╗ ██╔╝██║   ██║██╔═══╝ ██║██╔═══╝ ██╔══╝
╚██████╗╚██████╔╝██║ ╚████║ ╚████╔╝ ╚██████╔╝██║     ██║██║     ███████╗
 ╚═════╝ ╚═════╝ ╚═╝  ╚═══╝  ╚═══╝   ╚═════╝ ╚═╝     ╚═╝╚═╝     ╚══════╝
`
