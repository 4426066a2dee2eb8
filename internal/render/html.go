package render

import (
	"encoding/json"
	"fmt"

	"github.com/msalah0e/kgx/internal/explorer"
	"github.com/msalah0e/kgx/internal/layout"
)

// LivePage returns the viewer page. It polls /api/snapshot and posts pointer
// events back so all state stays in the server session.
func LivePage(title string, p layout.Params) string {
	return page(title, p, "null", true)
}

// StaticPage returns a self-contained page drawing one snapshot, without
// interaction beyond pan and zoom.
func StaticPage(title string, snap explorer.Snapshot, p layout.Params) (string, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return "", fmt.Errorf("encoding snapshot: %w", err)
	}
	return page(title, p, string(data), false), nil
}

func page(title string, p layout.Params, initial string, live bool) string {
	p = p.WithDefaults()
	titleJSON, _ := json.Marshal(title)
	return fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="UTF-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>kgx</title>
<style>
*{margin:0;padding:0;box-sizing:border-box}
body{background:#0a0e17;color:#e0e0e0;font-family:-apple-system,BlinkMacSystemFont,'Segoe UI',sans-serif;overflow:hidden}
canvas{display:block}
#info{position:fixed;top:16px;left:16px;z-index:10;background:rgba(10,14,23,0.9);border:1px solid rgba(45,182,130,0.3);border-radius:12px;padding:16px 20px;font-size:13px;min-width:220px}
#info h2{color:#2DB682;font-size:16px;margin-bottom:8px}
.stat{color:#888;margin:2px 0}
.stat b{color:#ccc}
#notice{color:#E07C3A;margin-top:6px;font-size:12px}
#controls{position:fixed;top:16px;right:16px;z-index:10;display:flex;flex-direction:column;gap:8px}
#controls input{background:rgba(10,14,23,0.9);border:1px solid rgba(45,182,130,0.3);border-radius:8px;padding:8px 14px;color:#e0e0e0;font-size:13px;outline:none;width:280px;font-family:inherit}
#controls input:focus{border-color:#2DB682}
#tooltip{position:fixed;z-index:20;pointer-events:none;display:none;background:rgba(10,14,23,0.95);border:1px solid rgba(45,182,130,0.5);border-radius:10px;padding:12px 16px;font-size:12px;max-width:320px}
.tt-name{color:#2DB682;font-weight:700;font-size:14px}
.tt-type{color:#888;font-style:italic;margin-bottom:4px}
.tt-prop{color:#aaa;margin:2px 0}
#legend{position:fixed;bottom:16px;left:16px;z-index:10;background:rgba(10,14,23,0.9);border:1px solid rgba(255,255,255,0.06);border-radius:10px;padding:12px 16px;font-size:11px;color:#666}
.leg-row{margin:3px 0;display:flex;align-items:center;gap:8px}
.dot{width:10px;height:10px;border-radius:50%%;display:inline-block}
</style>
</head>
<body>
<div id="info">
  <h2 id="title"></h2>
  <div class="stat"><b id="n-nodes">0</b> nodes</div>
  <div class="stat"><b id="n-edges">0</b> edges</div>
  <div class="stat" id="status"></div>
  <div id="notice"></div>
</div>
<div id="controls">
  <input id="query-box" type="text" placeholder="Ask the graph...">
  <input id="filter-box" type="text" placeholder="Filter, e.g. &quot;Batch&quot; in labels">
</div>
<div id="tooltip"></div>
<div id="legend"></div>
<canvas id="canvas"></canvas>
<script>
"use strict";
const LIVE=%t;
const VW=%g,VH=%g;
let snap=%s;

document.getElementById('title').textContent=%s;
if(!LIVE){document.getElementById('controls').style.display='none'}

const PALETTE=['#2DB682','#0171E3','#E07C3A','#9B59B6','#E74C3C','#1ABC9C','#F1C40F','#3498DB','#E91E63','#00BCD4'];
const TYPE_COLORS={};
function colorOf(n){
  const t=(n.labels&&n.labels[0])||'default';
  if(!(t in TYPE_COLORS)){TYPE_COLORS[t]=PALETTE[Object.keys(TYPE_COLORS).length%%PALETTE.length];drawLegend()}
  return TYPE_COLORS[t];
}
function drawLegend(){
  const legend=document.getElementById('legend');
  legend.textContent='';
  Object.keys(TYPE_COLORS).sort().forEach(t=>{
    const row=document.createElement('div');row.className='leg-row';
    const dot=document.createElement('span');dot.className='dot';dot.style.background=TYPE_COLORS[t];
    row.appendChild(dot);row.appendChild(document.createTextNode(' '+t));legend.appendChild(row);
  });
}

const canvas=document.getElementById('canvas');
const ctx=canvas.getContext('2d');
let W,H,S=1,OX=0,OY=0,local={x:0,y:0,k:1};
function resize(){
  W=canvas.width=window.innerWidth;H=canvas.height=window.innerHeight;
  S=Math.min(W/VW,H/VH);OX=(W-VW*S)/2;OY=(H-VH*S)/2;
}
resize();
window.addEventListener('resize',resize);

function xf(){return LIVE?snap.transform:local}
function toScreen(x,y){const t=xf();return[(x*t.k+t.x)*S+OX,(y*t.k+t.y)*S+OY]}
function toView(sx,sy){return[(sx-OX)/S,(sy-OY)/S]}
function toWorld(sx,sy){const t=xf(),[vx,vy]=toView(sx,sy);return[(vx-t.x)/t.k,(vy-t.y)/t.k]}

function post(path,body){
  if(!LIVE)return Promise.resolve();
  return fetch(path,{method:'POST',headers:{'Content-Type':'application/json'},body:JSON.stringify(body||{})}).catch(()=>{});
}

function radius(n){return n.selected?11:(n.association?6:8)}

function draw(){
  ctx.clearRect(0,0,W,H);
  if(!snap)return;
  const byId={};
  for(const n of snap.nodes)byId[n.id]=n;
  const k=xf().k*S;
  for(const e of snap.edges){
    const a=byId[e.source],b=byId[e.target];
    if(!a||!b||!a.positioned||!b.positioned)continue;
    const[ax,ay]=toScreen(a.x,a.y),[bx,by]=toScreen(b.x,b.y);
    ctx.beginPath();ctx.moveTo(ax,ay);ctx.lineTo(bx,by);
    ctx.setLineDash(e.association?[4,4]:[]);
    ctx.strokeStyle=e.highlight?'rgba(45,182,130,0.8)':'rgba(255,255,255,0.12)';
    ctx.lineWidth=e.highlight?2:1;ctx.stroke();
    ctx.setLineDash([]);
    if(e.highlight&&e.type){
      ctx.font='10px -apple-system,sans-serif';ctx.fillStyle='#2DB682';ctx.textAlign='center';
      ctx.fillText(e.type,(ax+bx)/2,(ay+by)/2-6);
    }
  }
  for(const n of snap.nodes){
    if(!n.positioned)continue;
    const[sx,sy]=toScreen(n.x,n.y);
    const r=radius(n)*k;
    const col=colorOf(n);
    const hl=n.selected||n.neighbor;
    ctx.beginPath();ctx.arc(sx,sy,r,0,Math.PI*2);
    ctx.fillStyle=hl?col:col+'99';ctx.fill();
    ctx.strokeStyle=n.selected?'#fff':col;ctx.lineWidth=n.selected?3:1;ctx.stroke();
    if(n.pinned){ctx.beginPath();ctx.arc(sx,sy,r+3,0,Math.PI*2);ctx.strokeStyle='rgba(255,255,255,0.3)';ctx.lineWidth=1;ctx.stroke()}
    ctx.font=(hl?'bold ':'')+Math.max(10,12*k)+'px -apple-system,sans-serif';
    ctx.fillStyle=hl?'#fff':'#bbb';ctx.textAlign='center';
    ctx.fillText(n.name,sx,sy+r+14);
  }
  document.getElementById('n-nodes').textContent=snap.nodes.length+(snap.hidden?' (+'+snap.hidden+' hidden)':'');
  document.getElementById('n-edges').textContent=snap.edges.length;
  document.getElementById('status').textContent=snap.loading?'loading...':(snap.selected?'selected: '+snap.selected:'');
  document.getElementById('notice').textContent=snap.error||snap.notice||'';
}

function findNode(sx,sy){
  if(!snap)return null;
  const[wx,wy]=toWorld(sx,sy);
  for(let i=snap.nodes.length-1;i>=0;i--){
    const n=snap.nodes[i];if(!n.positioned)continue;
    const dx=n.x-wx,dy=n.y-wy,r=radius(n)+4;
    if(dx*dx+dy*dy<r*r)return n;
  }
  return null;
}

let drag=null;
canvas.addEventListener('mousedown',e=>{
  const n=findNode(e.clientX,e.clientY);
  if(n){drag={node:n.id,moved:false};post('/api/nodes/'+encodeURIComponent(n.id)+'/drag',{phase:'start'})}
  else{drag={pan:true,sx:e.clientX,sy:e.clientY,moved:false}}
});
canvas.addEventListener('mousemove',e=>{
  if(drag&&drag.pan){
    const dx=(e.clientX-drag.sx)/S,dy=(e.clientY-drag.sy)/S;
    if(Math.abs(dx)+Math.abs(dy)>0){drag.moved=true;drag.sx=e.clientX;drag.sy=e.clientY}
    if(LIVE)post('/api/viewport',{dx:dx,dy:dy});else{local.x+=dx;local.y+=dy}
  }else if(drag){
    drag.moved=true;
    const[wx,wy]=toWorld(e.clientX,e.clientY);
    post('/api/nodes/'+encodeURIComponent(drag.node)+'/drag',{phase:'move',x:wx,y:wy});
  }
  const n=findNode(e.clientX,e.clientY);
  const tt=document.getElementById('tooltip');
  if(n){
    canvas.style.cursor='pointer';
    tt.textContent='';
    const nameEl=document.createElement('div');nameEl.className='tt-name';nameEl.textContent=n.name;tt.appendChild(nameEl);
    if(n.labels&&n.labels.length){const typeEl=document.createElement('div');typeEl.className='tt-type';typeEl.textContent=n.labels.join(', ');tt.appendChild(typeEl)}
    Object.keys(n.properties||{}).slice(0,8).forEach(k=>{const p=document.createElement('div');p.className='tt-prop';p.textContent=k+': '+JSON.stringify(n.properties[k]);tt.appendChild(p)});
    tt.style.display='block';tt.style.left=(e.clientX+16)+'px';tt.style.top=(e.clientY+16)+'px';
  }else{
    canvas.style.cursor=drag?'grabbing':'default';tt.style.display='none';
  }
});
canvas.addEventListener('mouseup',e=>{
  if(drag&&drag.node){
    post('/api/nodes/'+encodeURIComponent(drag.node)+'/drag',{phase:'end'});
    if(!drag.moved)post('/api/nodes/'+encodeURIComponent(drag.node)+'/click');
  }else if(drag&&drag.pan&&!drag.moved){
    post('/api/background');
  }
  drag=null;
});
canvas.addEventListener('wheel',e=>{
  e.preventDefault();
  const factor=e.deltaY>0?0.9:1.1;
  const[cx,cy]=toView(e.clientX,e.clientY);
  if(LIVE){post('/api/viewport',{zoom:factor,cx:cx,cy:cy});return}
  const wx=(cx-local.x)/local.k,wy=(cy-local.y)/local.k;
  local.k=Math.max(%g,Math.min(%g,local.k*factor));
  local.x=cx-wx*local.k;local.y=cy-wy*local.k;
},{passive:false});

document.getElementById('query-box').addEventListener('keydown',function(e){
  if(e.key==='Enter'&&this.value.trim()){post('/api/query',{text:this.value.trim()})}
});
document.getElementById('filter-box').addEventListener('keydown',function(e){
  if(e.key==='Enter'){post('/api/filter',{expr:this.value.trim()})}
});

if(!LIVE&&snap){local=snap.transform||local}
async function poll(){
  if(!LIVE)return;
  try{const r=await fetch('/api/snapshot');if(r.ok)snap=await r.json()}catch(_){}
  setTimeout(poll,%d);
}
poll();
(function loop(){draw();requestAnimationFrame(loop)})();
</script>
</body>
</html>`, live, p.Width, p.Height, initial, string(titleJSON), p.MinScale, p.MaxScale, p.TickInterval.Milliseconds()*2)
}
